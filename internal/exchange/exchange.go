// Package exchange reads and writes the portable point export file.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"aprofinder/internal/points"
)

// FormatVersion is written to every export.
const FormatVersion = "1.0"

// isoMillis matches the timestamps written by earlier releases.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrNoPoints is returned when the document has no points array.
	ErrNoPoints = errors.New("exchange: file does not contain a points array")
	// ErrInvalidRecord is returned when a point lacks its key or repeats one.
	ErrInvalidRecord = errors.New("exchange: invalid point record")
	// ErrCancelled is returned when the confirmation callback declines.
	ErrCancelled = errors.New("exchange: import cancelled")
)

// Document is the export file layout.
type Document struct {
	Points     []points.Point `json:"points"`
	ExportDate string         `json:"exportDate"`
	Version    string         `json:"version"`
}

// FileName returns the suggested export file name for the given day.
func FileName(now time.Time) string {
	return "puntos_mapa_" + now.UTC().Format("2006-01-02") + ".json"
}

// NewDocument wraps pts for export at now.
func NewDocument(pts []points.Point, now time.Time) Document {
	if pts == nil {
		pts = []points.Point{}
	}
	return Document{
		Points:     pts,
		ExportDate: now.UTC().Format(isoMillis),
		Version:    FormatVersion,
	}
}

// Export writes pts as an indented document.
func Export(w io.Writer, pts []points.Point, now time.Time) error {
	data, err := json.MarshalIndent(NewDocument(pts, now), "", "  ")
	if err != nil {
		return fmt.Errorf("exchange: encode: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("exchange: write: %w", err)
	}
	return nil
}

// ExportFile writes pts to path.
func ExportFile(path string, pts []points.Point, now time.Time) error {
	var buf bytes.Buffer
	if err := Export(&buf, pts, now); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Decode parses and validates a document. Every point must carry an id
// and a map id, and no key may repeat.
func Decode(r io.Reader) (Document, error) {
	var raw struct {
		Points     json.RawMessage `json:"points"`
		ExportDate string          `json:"exportDate"`
		Version    string          `json:"version"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("exchange: parse: %w", err)
	}

	trimmed := bytes.TrimSpace(raw.Points)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Document{}, ErrNoPoints
	}

	doc := Document{ExportDate: raw.ExportDate, Version: raw.Version}
	if err := json.Unmarshal(trimmed, &doc.Points); err != nil {
		return Document{}, fmt.Errorf("exchange: parse points: %w", err)
	}
	if doc.Points == nil {
		doc.Points = []points.Point{}
	}

	seen := make(map[points.Key]int, len(doc.Points))
	for i, p := range doc.Points {
		if p.ID == "" || p.MapID == "" {
			return Document{}, fmt.Errorf("%w: entry %d has no id or mapId", ErrInvalidRecord, i)
		}
		if first, dup := seen[p.Key()]; dup {
			return Document{}, fmt.Errorf("%w: entries %d and %d share id %s on %s",
				ErrInvalidRecord, first, i, p.ID, p.MapID)
		}
		seen[p.Key()] = i
	}
	return doc, nil
}

// Replacer receives the imported collection.
type Replacer interface {
	SaveAll(pts []points.Point) error
}

// Confirm is asked before anything is replaced. count is the number of
// points in the file.
type Confirm func(count int) bool

// Import decodes r, asks confirm, and replaces the whole collection.
// On any error the destination is left untouched.
func Import(r io.Reader, dst Replacer, confirm Confirm) (int, error) {
	doc, err := Decode(r)
	if err != nil {
		return 0, err
	}
	if confirm != nil && !confirm(len(doc.Points)) {
		return 0, ErrCancelled
	}
	if err := dst.SaveAll(doc.Points); err != nil {
		return 0, err
	}
	return len(doc.Points), nil
}

// ImportFile imports from path.
func ImportFile(path string, dst Replacer, confirm Confirm) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Import(f, dst, confirm)
}
