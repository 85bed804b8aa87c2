package ent

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// NotAvailable stands in for a field that is absent.
	NotAvailable = "N/A"
	// ParseFailed stands in for every field when the text could not be read.
	ParseFailed = "parse error"
)

// ErrUnreadable reports an entity text source that could not be read.
var ErrUnreadable = errors.New("entity text unreadable")

// Summary holds the fields shown for a map.
type Summary struct {
	MapName    string `json:"map_name"`
	AlliesNext string `json:"allies_nextmap"`
	AxisNext   string `json:"axis_nextmap"`
}

// Unavailable is the summary of a map with no entity text yet.
func Unavailable() Summary {
	return Summary{MapName: NotAvailable, AlliesNext: NotAvailable, AxisNext: NotAvailable}
}

// Failed is the summary of a map whose entity text could not be read.
func Failed() Summary {
	return Summary{MapName: ParseFailed, AlliesNext: ParseFailed, AxisNext: ParseFailed}
}

// Summarize extracts the map name and per-team next maps. Later blocks win when
// the same role appears more than once; missing fields read as NotAvailable.
func Summarize(text string) Summary {
	s := Unavailable()
	for _, b := range Blocks(text) {
		fields := b.Fields()
		switch fields[KeyClassname] {
		case ClassWorldspawn:
			s.MapName = fieldOr(fields, KeyMessage)
		case ClassInfoTeamStart:
			switch strings.ToLower(fields[KeyMessage]) {
			case TeamAllies:
				s.AlliesNext = fieldOr(fields, KeyNextmap)
			case TeamAxis:
				s.AxisNext = fieldOr(fields, KeyNextmap)
			}
		}
	}
	return s
}

// ReadSummary summarizes the entity text file at path. When the file cannot be
// read it returns Failed() together with an error wrapping ErrUnreadable.
func ReadSummary(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Failed(), fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return Summarize(string(data)), nil
}

func fieldOr(fields map[string]string, key string) string {
	if v, ok := fields[key]; ok {
		return v
	}
	return NotAvailable
}
