package caster

import (
	"fmt"
	"strconv"
	"strings"
)

// minStreamFields is the number of fields that a STR record must have to be
// used.
const minStreamFields = 10

// SourceTableEntry describes one stream (mountpoint) in a source table.
type SourceTableEntry struct {
	Mountpoint string `json:"mountpoint" yaml:"mountpoint"`
	Identifier string `json:"identifier" yaml:"identifier"`
	Format     string `json:"format" yaml:"format"`
	NavSystem  string `json:"nav_system" yaml:"nav_system"`
	Country    string `json:"country" yaml:"country"`

	// Latitude and Longitude are nil if the source table doesn't give them.
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// String returns the entry as one line.
func (e *SourceTableEntry) String() string {
	return fmt.Sprintf("%-20s %-20s %-12s %-12s %-4s %s %s",
		e.Mountpoint, e.Identifier, e.Format, e.NavSystem, e.Country,
		formatCoordinate(e.Latitude), formatCoordinate(e.Longitude))
}

func formatCoordinate(c *float64) string {
	if c == nil {
		return "-"
	}
	return strconv.FormatFloat(*c, 'f', -1, 64)
}

// CasterEntry describes a caster listed in a source table (a CAS record).
type CasterEntry struct {
	Host       string `json:"host" yaml:"host"`
	Port       string `json:"port" yaml:"port"`
	Identifier string `json:"identifier" yaml:"identifier"`
	Operator   string `json:"operator" yaml:"operator"`
}

// NetworkEntry describes a network listed in a source table (a NET record).
type NetworkEntry struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Operator   string `json:"operator" yaml:"operator"`
}

// SourceTable is the parsed contents of a caster's source table.
type SourceTable struct {
	Streams  []SourceTableEntry `json:"streams" yaml:"streams"`
	Casters  []CasterEntry      `json:"casters" yaml:"casters"`
	Networks []NetworkEntry     `json:"networks" yaml:"networks"`
}

// ParseSourceTable extracts the streams from the text of a source table.
// Each stream is a line starting "STR;".  Lines with fewer than ten fields
// are dropped and other lines are ignored.
func ParseSourceTable(text string) []SourceTableEntry {
	return ParseSourceTableDetail(text).Streams
}

// ParseSourceTableDetail extracts the streams, casters and networks from
// the text of a source table.
func ParseSourceTableDetail(text string) *SourceTable {
	table := SourceTable{
		Streams:  make([]SourceTableEntry, 0),
		Casters:  make([]CasterEntry, 0),
		Networks: make([]NetworkEntry, 0),
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		fields := strings.Split(line, ";")
		switch {
		case strings.HasPrefix(line, "STR;"):
			if len(fields) < minStreamFields {
				continue
			}
			table.Streams = append(table.Streams, SourceTableEntry{
				Mountpoint: fields[1],
				Identifier: fields[2],
				Format:     fields[3],
				NavSystem:  fields[6],
				Country:    fields[8],
				Latitude:   parseCoordinate(fields, 9),
				Longitude:  parseCoordinate(fields, 10),
			})
		case strings.HasPrefix(line, "CAS;"):
			table.Casters = append(table.Casters, CasterEntry{
				Host:       field(fields, 1),
				Port:       field(fields, 2),
				Identifier: field(fields, 3),
				Operator:   field(fields, 4),
			})
		case strings.HasPrefix(line, "NET;"):
			table.Networks = append(table.Networks, NetworkEntry{
				Identifier: field(fields, 1),
				Operator:   field(fields, 2),
			})
		}
	}

	return &table
}

// parseCoordinate returns the field as a number, or nil if it's missing or
// isn't a number.
func parseCoordinate(fields []string, i int) *float64 {
	if i >= len(fields) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
	if err != nil {
		return nil
	}
	return &v
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}
