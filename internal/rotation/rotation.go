// Package rotation holds the curated, ordered list of maps a server cycles through.
package rotation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MaxMaplistEntries is the most maps the server's maplist command accepts.
const MaxMaplistEntries = 64

var (
	ErrEmpty     = errors.New("rotation is empty")
	ErrDuplicate = errors.New("map already in rotation")
	ErrNotFound  = errors.New("map not in rotation")
	ErrBadName   = errors.New("invalid map name")
	ErrPosition  = errors.New("position out of range")
)

// Rotation is an ordered list of map identifiers (base names without extension).
// Order is both the display order and the play order; the map after the last one
// is the first one.
type Rotation struct {
	maps []string
}

// New builds a rotation from names, rejecting invalid or repeated entries.
func New(names ...string) (*Rotation, error) {
	r := &Rotation{}
	for _, n := range names {
		if err := r.Add(n); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Maps returns a copy of the entries in order.
func (r *Rotation) Maps() []string {
	return slices.Clone(r.maps)
}

func (r *Rotation) Len() int {
	return len(r.maps)
}

// Index returns the position of name, or -1.
func (r *Rotation) Index(name string) int {
	return slices.Index(r.maps, name)
}

func (r *Rotation) Contains(name string) bool {
	return r.Index(name) >= 0
}

// Add appends name.
func (r *Rotation) Add(name string) error {
	return r.Insert(len(r.maps), name)
}

// Insert places name at index, shifting later entries down.
func (r *Rotation) Insert(index int, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if r.Contains(name) {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	if index < 0 || index > len(r.maps) {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrPosition, index, len(r.maps))
	}
	r.maps = slices.Insert(r.maps, index, name)
	return nil
}

// Remove deletes name.
func (r *Rotation) Remove(name string) error {
	i := r.Index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	r.maps = slices.Delete(r.maps, i, i+1)
	return nil
}

// Move shifts the entry at index by delta positions (negative moves up). It reports
// whether anything moved; a target outside the list leaves it unchanged.
func (r *Rotation) Move(index, delta int) bool {
	if index < 0 || index >= len(r.maps) {
		return false
	}
	to := index + delta
	if to < 0 || to >= len(r.maps) || to == index {
		return false
	}
	name := r.maps[index]
	r.maps = slices.Delete(r.maps, index, index+1)
	r.maps = slices.Insert(r.maps, to, name)
	return true
}

// Clear removes every entry.
func (r *Rotation) Clear() {
	r.maps = nil
}

// Successor returns the map played after position i.
func (r *Rotation) Successor(i int) (string, error) {
	if len(r.maps) == 0 {
		return "", ErrEmpty
	}
	if i < 0 || i >= len(r.maps) {
		return "", fmt.Errorf("%w: %d not in [0,%d)", ErrPosition, i, len(r.maps))
	}
	return r.maps[(i+1)%len(r.maps)], nil
}

// Link pairs a map with the one played after it.
type Link struct {
	Map  string `json:"map"`
	Next string `json:"next"`
}

// Links returns every entry with its circular successor, in rotation order.
func (r *Rotation) Links() []Link {
	out := make([]Link, len(r.maps))
	for i, m := range r.maps {
		out[i] = Link{Map: m, Next: r.maps[(i+1)%len(r.maps)]}
	}
	return out
}

// checkName rejects names that cannot be a map file base name or a maplist token.
func checkName(name string) error {
	if name == "" || strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if strings.ContainsAny(name, " \t\r\n\"/\\") {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}
