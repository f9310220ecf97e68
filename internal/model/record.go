package model

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Record is one entity read from a vector layer. Coordinates are in the
// shared projected CRS (meters).
type Record struct {
	Index      int
	ID         string
	Geometry   geom.T
	Attributes map[string]string
}

// Attr returns the named attribute, or "" when absent.
func (r *Record) Attr(name string) string {
	if r == nil || r.Attributes == nil {
		return ""
	}
	return r.Attributes[name]
}

// Park is a named protected area.
type Park struct {
	Name     string
	Geometry *geom.MultiPolygon
}

// Location classifies an entity against its nearest park.
type Location string

const (
	LocationInside   Location = "inside"
	LocationBoundary Location = "boundary"
)

// Label is the value written to loc_NP columns.
func (l Location) Label() string {
	switch l {
	case LocationInside:
		return "inside park"
	case LocationBoundary:
		return "near boundary"
	}
	return ""
}

// JoinStrategy selects the row shape of a country profile.
type JoinStrategy int

const (
	// JoinDuplicate emits one row per country x habitat sub-polygon.
	JoinDuplicate JoinStrategy = iota
	// JoinAppend emits one row per country with pivoted habitat columns.
	JoinAppend
)

func (s JoinStrategy) String() string {
	switch s {
	case JoinDuplicate:
		return "duplicate"
	case JoinAppend:
		return "append"
	}
	return "unknown"
}

// ParseJoinStrategy parses "duplicate" or "append".
func ParseJoinStrategy(s string) (JoinStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "duplicate", "":
		return JoinDuplicate, nil
	case "append":
		return JoinAppend, nil
	}
	return 0, eris.Errorf("model: unknown join strategy %q", s)
}

// SpeciesFlag is the attribute value marking a species as caught.
const SpeciesFlag = "Y"

// SpeciesDiversity counts the species caught at a site: every attribute
// equal to "Y" plus each comma-separated name listed in otherField.
func SpeciesDiversity(attrs map[string]string, otherField string) int {
	n := 0
	for k, v := range attrs {
		if k == otherField {
			continue
		}
		if v == SpeciesFlag {
			n++
		}
	}
	if otherField == "" {
		return n
	}
	other := strings.TrimSpace(attrs[otherField])
	if other == "" {
		return n
	}
	for _, name := range strings.Split(other, ",") {
		if strings.TrimSpace(name) != "" {
			n++
		}
	}
	return n
}

// FoldID folds a display name into an ASCII identifier. Accents are
// stripped, remaining non-ASCII runes dropped and spaces replaced by "_".
// It returns the folded display name and the identifier.
func FoldID(name string) (string, string) {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
		norm.NFC,
	)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.TrimSpace(folded)
	return folded, strings.ReplaceAll(folded, " ", "_")
}
