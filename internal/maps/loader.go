package maps

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"aprofinder/pkg/geometry"

	"github.com/rs/zerolog"
)

// ErrSuperseded is delivered to a LoadAsync callback whose request was
// overtaken by a newer one.
var ErrSuperseded = errors.New("maps: load superseded by a newer request")

// Image is a decoded map image.
type Image struct {
	Map    Map
	Image  image.Image
	Format string
}

// Size returns the pixel extent of the image.
func (i *Image) Size() geometry.Size {
	if i == nil || i.Image == nil {
		return geometry.Size{}
	}
	b := i.Image.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

// Loader fetches and decodes map images. Only the most recent LoadAsync
// request is applied.
type Loader struct {
	client *http.Client
	log    zerolog.Logger
	gen    atomic.Uint64
}

// NewLoader creates a loader. timeout bounds remote downloads.
func NewLoader(timeout time.Duration, log zerolog.Logger) *Loader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "maps").Logger(),
	}
}

func isRemote(id string) bool {
	lower := strings.ToLower(id)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// open returns a reader for a path or an http(s) URL.
func (l *Loader) open(ctx context.Context, id string) (io.ReadCloser, error) {
	if !isRemote(id) {
		f, err := os.Open(id)
		if err != nil {
			return nil, fmt.Errorf("maps: open %s: %w", id, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
	if err != nil {
		return nil, fmt.Errorf("maps: request %s: %w", id, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("maps: fetch %s: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("maps: fetch %s: %s", id, resp.Status)
	}
	return resp.Body, nil
}

// Load fetches and decodes the image of m.
func (l *Loader) Load(ctx context.Context, m Map) (*Image, error) {
	start := time.Now()
	rc, err := l.open(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, format, err := Decode(rc, m.ID)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("maps: %s has an empty image", m.ID)
	}

	l.log.Info().
		Str("map", m.ID).
		Str("format", format).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Dur("elapsed", time.Since(start)).
		Msg("Loaded map image")
	return &Image{Map: m, Image: img, Format: format}, nil
}

// LoadAsync loads m in a goroutine and calls done exactly once. If another
// LoadAsync starts before this one finishes, done receives ErrSuperseded
// instead of the image.
func (l *Loader) LoadAsync(ctx context.Context, m Map, done func(*Image, error)) {
	gen := l.gen.Add(1)
	go func() {
		img, err := l.Load(ctx, m)
		if l.gen.Load() != gen {
			l.log.Debug().Str("map", m.ID).Msg("Discarding superseded map load")
			done(nil, ErrSuperseded)
			return
		}
		if err != nil {
			l.log.Error().Err(err).Str("map", m.ID).Msg("Failed to load map image")
		}
		done(img, err)
	}()
}
