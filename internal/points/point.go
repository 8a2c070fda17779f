// Package points holds the pin records placed on maps and the store that
// persists them.
package points

import (
	"math"
	"strings"
	"unicode/utf8"

	"aprofinder/pkg/geometry"
)

// MaxRating is the top of the star scale.
const MaxRating = 5

// Point is a worker/business listing pinned at image-space coordinates.
// JSON names match the files written by earlier releases.
type Point struct {
	ID           string   `json:"id"`
	MapID        string   `json:"mapId"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	BusinessName string   `json:"businessName"`
	WorkerName   string   `json:"workerName"`
	Profession   string   `json:"profession"`
	Description  string   `json:"description"`
	Whatsapp     string   `json:"whatsapp"`
	Rating       float64  `json:"rating"`
	ProfileImage string   `json:"profileImage,omitempty"`
	Images       []string `json:"images,omitempty"`
}

// Key identifies a point within the store.
type Key struct {
	ID    string
	MapID string
}

// Key returns the composite identity of p.
func (p Point) Key() Key {
	return Key{ID: p.ID, MapID: p.MapID}
}

// clone returns a copy that shares no slices with p.
func (p Point) clone() Point {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	return p
}

// normalized trims text fields and clamps the rating.
func (p Point) normalized() Point {
	p.ID = strings.TrimSpace(p.ID)
	p.MapID = strings.TrimSpace(p.MapID)
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	p.WorkerName = strings.TrimSpace(p.WorkerName)
	p.Profession = strings.TrimSpace(p.Profession)
	p.Description = strings.TrimSpace(p.Description)
	p.Whatsapp = strings.TrimSpace(p.Whatsapp)
	p.Rating = ClampRating(p.Rating)
	return p
}

// ClampRating limits r to [0, MaxRating]. NaN becomes 0.
func ClampRating(r float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(0, math.Min(MaxRating, r))
}

// Stars renders the rating as filled and empty stars.
func (p Point) Stars() string {
	filled := int(math.Floor(ClampRating(p.Rating)))
	return strings.Repeat("★", filled) + strings.Repeat("☆", MaxRating-filled)
}

// Excerpt returns the description cut to max runes with "..." appended
// when it was longer.
func (p Point) Excerpt(max int) string {
	if utf8.RuneCountInString(p.Description) <= max {
		return p.Description
	}
	runes := []rune(p.Description)
	return string(runes[:max]) + "..."
}

// Matches reports whether the lower-cased query occurs in any searchable field.
func (p Point) Matches(query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{p.WorkerName, p.BusinessName, p.Profession, p.Description} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Position returns the image-space location of p.
func (p Point) Position() geometry.Point2D {
	return geometry.NewPoint2D(p.X, p.Y)
}
