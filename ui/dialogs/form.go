// Package dialogs provides application dialogs.
package dialogs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"aprofinder/internal/points"
)

// ErrMissingField is returned when a required form field is blank.
var ErrMissingField = errors.New("campo obligatorio")

// PointFields is the text content of the point form.
type PointFields struct {
	BusinessName string
	WorkerName   string
	Profession   string
	Description  string
	Whatsapp     string
	Rating       float64
	ProfileImage string
	Images       string // one path or URL per line
}

// FieldsOf fills a form from an existing point.
func FieldsOf(p points.Point) PointFields {
	return PointFields{
		BusinessName: p.BusinessName,
		WorkerName:   p.WorkerName,
		Profession:   p.Profession,
		Description:  p.Description,
		Whatsapp:     p.Whatsapp,
		Rating:       p.Rating,
		ProfileImage: p.ProfileImage,
		Images:       strings.Join(p.Images, "\n"),
	}
}

// Apply copies the form onto base, keeping its id, map and position.
func (f PointFields) Apply(base points.Point) (points.Point, error) {
	required := []struct {
		label, value string
	}{
		{"Nombre del negocio", f.BusinessName},
		{"Nombre del trabajador", f.WorkerName},
		{"Profesión", f.Profession},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return points.Point{}, fmt.Errorf("%s: %w", r.label, ErrMissingField)
		}
	}

	p := base
	p.BusinessName = strings.TrimSpace(f.BusinessName)
	p.WorkerName = strings.TrimSpace(f.WorkerName)
	p.Profession = strings.TrimSpace(f.Profession)
	p.Description = strings.TrimSpace(f.Description)
	p.Whatsapp = strings.TrimSpace(f.Whatsapp)
	p.Rating = points.ClampRating(f.Rating)
	p.ProfileImage = strings.TrimSpace(f.ProfileImage)
	p.Images = nil
	for _, line := range strings.Split(f.Images, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			p.Images = append(p.Images, line)
		}
	}
	return p, nil
}

// WhatsAppURL builds the chat link for a phone number. Everything except
// digits is dropped.
func WhatsAppURL(number string) (*url.URL, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return nil, false
	}
	return &url.URL{Scheme: "https", Host: "wa.me", Path: "/" + digits}, true
}
