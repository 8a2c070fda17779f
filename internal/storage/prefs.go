package storage

import (
	"encoding/json"
	"strings"
)

const prefsPrefix = "pref."

// Prefs stores typed user preferences in a KV, one JSON value per key.
// Read errors fall back to the zero value or the given fallback.
type Prefs struct {
	kv KV
}

// NewPrefs wraps kv.
func NewPrefs(kv KV) *Prefs {
	return &Prefs{kv: kv}
}

func (p *Prefs) get(key string, v interface{}) bool {
	data, ok, err := p.kv.Get(prefsPrefix + key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (p *Prefs) set(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.kv.Set(prefsPrefix+key, data)
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	var s string
	p.get(key, &s)
	return s
}

// SetString stores a string preference. An empty or blank value removes it.
func (p *Prefs) SetString(key, val string) error {
	if strings.TrimSpace(val) == "" {
		return p.kv.Delete(prefsPrefix + key)
	}
	return p.set(key, val)
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	var f float64
	if !p.get(key, &f) {
		return fallback
	}
	return f
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) error {
	return p.set(key, val)
}
