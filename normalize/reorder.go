package normalize

import (
	"github.com/pkg/errors"

	"logreplay/combatlog"
)

// Match selects events by type and ability.
type Match struct {
	Types     combatlog.TypeSet
	Abilities combatlog.IDSet
}

func (m *Match) Match(ev *combatlog.Event) bool {
	return m.Types.Has(ev.Type) && m.Abilities.Match(ev.Ability)
}

// Reorder moves a Before event that the log reports up to BufferMs after its
// After event in front of it. The moved event takes the After event's
// timestamp.
type Reorder struct {
	Before Match
	After  Match

	BufferMs  int64
	AnySource bool
}

func (r *Reorder) Name() string { return "reorder" }

func (r *Reorder) Validate() error {
	if len(r.Before.Types) == 0 || len(r.After.Types) == 0 {
		return errors.New("reorder: before and after types are required")
	}
	if r.BufferMs < 0 {
		return errors.New("reorder: buffer must not be negative")
	}
	return nil
}

func (r *Reorder) Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	moved := make(map[int]struct{})
	out := make([]*combatlog.Event, 0, len(events))

	for i, ev := range events {
		if _, ok := moved[i]; ok {
			continue
		}

		if r.After.Match(ev) {
			for j := i + 1; j < len(events) && events[j].Timestamp-ev.Timestamp <= r.BufferMs; j++ {
				if _, ok := moved[j]; ok {
					continue
				}

				b := events[j]
				if !r.Before.Match(b) || (!r.AnySource && !b.SameSource(ev)) {
					continue
				}

				moved[j] = struct{}{}
				if b.Timestamp != ev.Timestamp {
					b = log.Arena.Retime(b, ev.Timestamp)
				}
				out = append(out, b)
				break
			}
		}

		out = append(out, ev)
	}

	return out
}
