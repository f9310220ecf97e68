// Package legend maps raster category codes to labels.
package legend

import (
	"math"
)

// UnknownLabel is assigned to codes with no legend entry.
const UnknownLabel = "Unknown"

// Entry is one (code, label) pair.
type Entry struct {
	Code  int    `yaml:"code"`
	Label string `yaml:"label"`
}

// Legend is an ordered list of entries. The first entry for a code wins.
type Legend struct {
	Name    string
	entries []Entry
	byCode  map[int]string
	rank    map[string]int
}

// New builds a legend from entries in legend order.
func New(name string, entries []Entry) *Legend {
	l := &Legend{
		Name:    name,
		entries: append([]Entry(nil), entries...),
		byCode:  make(map[int]string, len(entries)),
		rank:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if _, ok := l.byCode[e.Code]; !ok {
			l.byCode[e.Code] = e.Label
		}
		if _, ok := l.rank[e.Label]; !ok {
			l.rank[e.Label] = len(l.rank)
		}
	}
	return l
}

// Entries returns the legend entries in order.
func (l *Legend) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Resolve returns the label for a raw cell value. The value is truncated to
// an integer code. Unmatched codes resolve to UnknownLabel and false.
func (l *Legend) Resolve(value float64) (string, bool) {
	if l == nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return UnknownLabel, false
	}
	if label, ok := l.byCode[int(value)]; ok {
		return label, true
	}
	return UnknownLabel, false
}

// Rank orders labels by first appearance in the legend. Unknown and labels
// absent from the legend sort last.
func (l *Legend) Rank(label string) int {
	if l != nil {
		if r, ok := l.rank[label]; ok && label != UnknownLabel {
			return r
		}
	}
	return math.MaxInt32
}

// Labels returns the distinct labels in legend order followed by Unknown.
func (l *Legend) Labels() []string {
	out := make([]string, 0, len(l.rank)+1)
	seen := make(map[string]bool, len(l.rank))
	for _, e := range l.entries {
		if seen[e.Label] || e.Label == UnknownLabel {
			continue
		}
		seen[e.Label] = true
		out = append(out, e.Label)
	}
	return append(out, UnknownLabel)
}
