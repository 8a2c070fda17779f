// Package maps lists the selectable maps and loads their images.
package maps

import "strings"

// Map is one selectable map. ID is the image location, a file path or an
// http(s) URL, and is also the key points are stored under.
type Map struct {
	ID   string `mapstructure:"id" json:"id"`
	Name string `mapstructure:"name" json:"name"`
}

// Label returns the display name, falling back to the id.
func (m Map) Label() string {
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}
	return m.ID
}

// Catalog is an ordered list of maps with unique ids.
type Catalog struct {
	maps []Map
}

// NewCatalog keeps the first occurrence of each non-empty id.
func NewCatalog(maps []Map) *Catalog {
	c := &Catalog{}
	seen := make(map[string]bool)
	for _, m := range maps {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		c.maps = append(c.maps, m)
	}
	return c
}

// All returns the maps in configuration order.
func (c *Catalog) All() []Map {
	return append([]Map(nil), c.maps...)
}

// Len returns the number of maps.
func (c *Catalog) Len() int {
	return len(c.maps)
}

// Find returns the map with the given id.
func (c *Catalog) Find(id string) (Map, bool) {
	for _, m := range c.maps {
		if m.ID == id {
			return m, true
		}
	}
	return Map{}, false
}

// Initial returns the map to show at startup: preferred when it exists,
// otherwise the first one.
func (c *Catalog) Initial(preferred string) (Map, bool) {
	if m, ok := c.Find(preferred); ok {
		return m, true
	}
	if len(c.maps) == 0 {
		return Map{}, false
	}
	return c.maps[0], true
}

// Labels returns the display names in order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.maps))
	for i, m := range c.maps {
		out[i] = m.Label()
	}
	return out
}

// ByLabel returns the first map with the given display name.
func (c *Catalog) ByLabel(label string) (Map, bool) {
	for _, m := range c.maps {
		if m.Label() == label {
			return m, true
		}
	}
	return Map{}, false
}
