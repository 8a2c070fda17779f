package dialogs

import (
	"testing"

	"aprofinder/internal/points"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointFields_RoundTrip(t *testing.T) {
	base := points.Point{
		ID: "1", MapID: "m", X: 10, Y: 20,
		BusinessName: "Tubos SA", WorkerName: "Ana", Profession: "Plomero",
		Rating: 4, Images: []string{"a.png", "https://x/b.jpg"},
	}

	got, err := FieldsOf(base).Apply(base)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestPointFields_Apply(t *testing.T) {
	base := points.Point{ID: "7", MapID: "m", X: 1, Y: 2}
	f := PointFields{
		BusinessName: "  Luz  ",
		WorkerName:   "Beto",
		Profession:   "Electricista",
		Rating:       9,
		Images:       "\n a.png \n\n b.png\n",
	}

	p, err := f.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, "7", p.ID)
	assert.Equal(t, "m", p.MapID)
	assert.Equal(t, 1.0, p.X)
	assert.Equal(t, "Luz", p.BusinessName)
	assert.Equal(t, float64(points.MaxRating), p.Rating)
	assert.Equal(t, []string{"a.png", "b.png"}, p.Images)
}

func TestPointFields_Required(t *testing.T) {
	tests := []struct {
		name string
		f    PointFields
	}{
		{"business", PointFields{WorkerName: "a", Profession: "b"}},
		{"worker", PointFields{BusinessName: "a", Profession: "b"}},
		{"profession", PointFields{BusinessName: "a", WorkerName: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.f.Apply(points.Point{})
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}
}

func TestWhatsAppURL(t *testing.T) {
	u, ok := WhatsAppURL("+52 (555) 123-4567")
	require.True(t, ok)
	assert.Equal(t, "https://wa.me/525551234567", u.String())

	_, ok = WhatsAppURL(" - ")
	assert.False(t, ok)
}

func TestImageURI(t *testing.T) {
	u, ok := imageURI("https://example.com/a.png")
	require.True(t, ok)
	assert.Equal(t, "https", u.Scheme())

	u, ok = imageURI("/tmp/a.png")
	require.True(t, ok)
	assert.Equal(t, "file", u.Scheme())

	_, ok = imageURI("  ")
	assert.False(t, ok)
}
