package points

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"aprofinder/internal/storage"

	"github.com/rs/zerolog"
)

// DefaultKey is the storage key holding the JSON array of points.
const DefaultKey = "mapPoints"

// MinQueryLength is the shortest trimmed query Search accepts.
const MinQueryLength = 2

var (
	// ErrNotFound is returned when no point has the requested key.
	ErrNotFound = errors.New("points: not found")
	// ErrDuplicate is returned when a point with the same key exists.
	ErrDuplicate = errors.New("points: duplicate id on map")
	// ErrInvalid is returned when required fields are missing.
	ErrInvalid = errors.New("points: invalid point")
	// ErrPersist wraps storage failures. The in-memory change is kept.
	ErrPersist = errors.New("points: persist failed")
)

// Store is the in-memory point collection backed by a storage.KV.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	kv     storage.KV
	key    string
	points []Point
	log    zerolog.Logger

	now func() time.Time
}

// Open creates a store over kv and loads it. Missing or unreadable data
// leaves the store empty; the cause is logged.
func Open(kv storage.KV, key string, log zerolog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		kv:  kv,
		key: key,
		log: log.With().Str("component", "points").Logger(),
		now: time.Now,
	}
	if _, err := s.Load(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Starting with an empty point collection")
	}
	return s
}

// Load replaces the in-memory collection with the persisted one. On any
// read or parse failure the collection becomes empty and the error is
// returned for diagnostics.
func (s *Store) Load() ([]Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = nil
	data, ok, err := s.kv.Get(s.key)
	if err != nil {
		return nil, fmt.Errorf("points: read %q: %w", s.key, err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}

	var loaded []Point
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("points: parse %q: %w", s.key, err)
	}
	s.points = s.dropDuplicates(loaded)
	s.log.Debug().Int("count", len(s.points)).Msg("Loaded points")
	return s.snapshot(), nil
}

// dropDuplicates keeps the first point of each key.
func (s *Store) dropDuplicates(pts []Point) []Point {
	seen := make(map[Key]struct{}, len(pts))
	out := pts[:0]
	for _, p := range pts {
		if _, dup := seen[p.Key()]; dup {
			s.log.Warn().Str("id", p.ID).Str("map", p.MapID).Msg("Dropping duplicate stored point")
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}

// checkUnique returns ErrDuplicate for the first repeated key in pts.
func checkUnique(pts []Point) error {
	seen := make(map[Key]struct{}, len(pts))
	for _, p := range pts {
		if _, dup := seen[p.Key()]; dup {
			return fmt.Errorf("%w: %s on %s", ErrDuplicate, p.ID, p.MapID)
		}
		seen[p.Key()] = struct{}{}
	}
	return nil
}

// persist must be called with mu held.
func (s *Store) persist() error {
	data, err := json.Marshal(s.pointsOrEmpty())
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}
	if err := s.kv.Set(s.key, data); err != nil {
		s.log.Error().Err(err).Str("key", s.key).Msg("Failed to save points")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Store) pointsOrEmpty() []Point {
	if s.points == nil {
		return []Point{}
	}
	return s.points
}

// snapshot must be called with mu held.
func (s *Store) snapshot() []Point {
	out := make([]Point, len(s.points))
	for i, p := range s.points {
		out[i] = p.clone()
	}
	return out
}

func (s *Store) indexOf(k Key) int {
	for i, p := range s.points {
		if p.ID == k.ID && p.MapID == k.MapID {
			return i
		}
	}
	return -1
}

// SaveAll replaces the whole collection and persists it. A repeated
// (id, mapId) key is rejected with ErrDuplicate. On failure the previous
// collection is kept.
func (s *Store) SaveAll(points []Point) error {
	next := make([]Point, len(points))
	for i, p := range points {
		next[i] = p.clone().normalized()
	}
	if err := checkUnique(next); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.points
	s.points = next
	if err := s.persist(); err != nil {
		s.points = prev
		return err
	}
	s.log.Info().Int("count", len(next)).Msg("Replaced points")
	return nil
}

// All returns every point in store order.
func (s *Store) All() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Len returns the number of stored points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Filter returns the points of one map in store order.
func (s *Store) Filter(mapID string) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Point
	for _, p := range s.points {
		if p.MapID == mapID {
			out = append(out, p.clone())
		}
	}
	return out
}

// Search returns the points of mapID whose worker name, business name,
// profession or description contains query, ignoring case. Queries
// shorter than MinQueryLength runes after trimming match nothing.
func (s *Store) Search(mapID, query string) []Point {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Point
	for _, p := range s.points {
		if p.MapID == mapID && p.Matches(query) {
			out = append(out, p.clone())
		}
	}
	return out
}

// Get returns the point with the given key.
func (s *Store) Get(id, mapID string) (Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(Key{ID: id, MapID: mapID})
	if i < 0 {
		return Point{}, fmt.Errorf("%w: %s on %s", ErrNotFound, id, mapID)
	}
	return s.points[i].clone(), nil
}

func validate(p Point) error {
	var missing []string
	if p.MapID == "" {
		missing = append(missing, "mapId")
	}
	if p.BusinessName == "" {
		missing = append(missing, "businessName")
	}
	if p.WorkerName == "" {
		missing = append(missing, "workerName")
	}
	if p.Profession == "" {
		missing = append(missing, "profession")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	if !p.Position().IsFinite() {
		return fmt.Errorf("%w: position is not finite", ErrInvalid)
	}
	return nil
}

// nextID returns a millisecond timestamp id not yet used on mapID.
func (s *Store) nextID(mapID string) string {
	ms := s.now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if s.indexOf(Key{ID: id, MapID: mapID}) < 0 {
			return id
		}
		ms++
	}
}

// Add appends p and persists. An empty id is assigned from the clock.
// The stored point is returned.
func (s *Store) Add(p Point) (Point, error) {
	p = p.clone().normalized()
	if err := validate(p); err != nil {
		return Point{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextID(p.MapID)
	} else if s.indexOf(p.Key()) >= 0 {
		return Point{}, fmt.Errorf("%w: %s on %s", ErrDuplicate, p.ID, p.MapID)
	}

	s.points = append(s.points, p)
	s.log.Debug().Str("id", p.ID).Str("map", p.MapID).Msg("Added point")
	return p.clone(), s.persist()
}

// Update replaces the point with the same key and persists.
func (s *Store) Update(p Point) (Point, error) {
	p = p.clone().normalized()
	if err := validate(p); err != nil {
		return Point{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(p.Key())
	if i < 0 {
		return Point{}, fmt.Errorf("%w: %s on %s", ErrNotFound, p.ID, p.MapID)
	}
	s.points[i] = p
	s.log.Debug().Str("id", p.ID).Str("map", p.MapID).Msg("Updated point")
	return p.clone(), s.persist()
}

// Delete removes the point with the given key and persists.
func (s *Store) Delete(id, mapID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(Key{ID: id, MapID: mapID})
	if i < 0 {
		return fmt.Errorf("%w: %s on %s", ErrNotFound, id, mapID)
	}
	s.points = append(s.points[:i], s.points[i+1:]...)
	s.log.Debug().Str("id", id).Str("map", mapID).Msg("Deleted point")
	return s.persist()
}

// Flush writes the current collection again.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}
