package profile

import (
	"maps"

	"github.com/sells-group/parkprofile/internal/model"
)

// Audit counts the recoverable issues of a run.
type Audit struct {
	Entities      int
	Nulled        int
	NulledByLayer map[string]int
	UnknownCodes  map[string]int
	Unresolved    int
}

func newAudit() *Audit {
	return &Audit{NulledByLayer: make(map[string]int), UnknownCodes: make(map[string]int)}
}

func (a *Audit) null(layer string) {
	a.Nulled++
	a.NulledByLayer[layer]++
}

func (a *Audit) unknown(layer string, n int) {
	if n > 0 {
		a.UnknownCodes[layer] += n
	}
}

// Merge adds o's counters to a.
func (a *Audit) Merge(o *Audit) {
	if o == nil {
		return
	}
	a.Entities += o.Entities
	a.Nulled += o.Nulled
	a.Unresolved += o.Unresolved
	for k, v := range o.NulledByLayer {
		a.NulledByLayer[k] += v
	}
	for k, v := range o.UnknownCodes {
		a.UnknownCodes[k] += v
	}
}

// Summary converts the audit to a run summary.
func (a *Audit) Summary(rows int) model.RunSummary {
	return model.RunSummary{
		Rows:          rows,
		Entities:      a.Entities,
		Nulled:        a.Nulled,
		NulledByLayer: maps.Clone(a.NulledByLayer),
		UnknownCodes:  maps.Clone(a.UnknownCodes),
		Unresolved:    a.Unresolved,
	}
}
