package link

import (
	"go.uber.org/zap"

	"logreplay/combatlog"
)

// Stats counts the links created per relation by one Apply call.
type Stats map[combatlog.Relation]int

func (s Stats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Engine attaches relation links to a normalized event stream.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Apply evaluates every spec against events (which must be sorted) and records
// the links on log. Specs are validated first; an invalid spec is returned as
// an error before anything is linked.
func (e *Engine) Apply(log *combatlog.Log, events []*combatlog.Event, specs []Spec) (Stats, error) {
	for i := range specs {
		if err := specs[i].Validate(); err != nil {
			return nil, err
		}
	}

	stats := make(Stats, len(specs))
	for i := range specs {
		m := specs[i].Bind(log.Combatant)
		if !m.Active() {
			e.logger.Debug("link spec inactive for build", zap.String("relation", string(specs[i].Relation)))
			continue
		}

		n := e.apply(log, events, m)
		stats[specs[i].Relation] += n

		e.logger.Debug("link spec applied",
			zap.String("relation", string(specs[i].Relation)),
			zap.Int("links", n),
		)
	}

	return stats, nil
}

func (e *Engine) apply(log *combatlog.Log, events []*combatlog.Event, m *Matcher) int {
	spec := m.Spec()
	limit, hasLimit := m.Limit()

	created := 0
	for i, linking := range events {
		if !m.IsLinking(linking) {
			continue
		}

		room := -1
		if hasLimit {
			room = limit - log.Links.Count(linking.ID, spec.Relation)
			if room <= 0 {
				continue
			}
		}

		for _, j := range m.Search(events, i, nil) {
			if room == 0 {
				break
			}

			ref := events[j]
			if !log.Links.Add(linking.ID, spec.Relation, ref.ID) {
				continue
			}
			if spec.ReverseRelation != "" {
				log.Links.Add(ref.ID, spec.ReverseRelation, linking.ID)
			}

			created++
			if room > 0 {
				room--
			}
		}
	}
	return created
}
