package link

import (
	"sort"

	"logreplay/combatlog"
)

// Matcher is a Spec bound to one player's build.
type Matcher struct {
	spec *Spec

	active bool

	limit    int
	hasLimit bool

	expected int
}

func (s *Spec) Bind(c combatlog.Combatant) *Matcher {
	m := &Matcher{
		spec:   s,
		active: s.IsActive.Eval(c),
	}
	m.limit, m.hasLimit = s.MaximumLinks.Eval(c)
	if s.RequiresExact {
		m.expected, _ = s.Expected.Eval(c)
	}
	return m
}

func (m *Matcher) Spec() *Spec {
	return m.spec
}

func (m *Matcher) Active() bool {
	return m.active
}

// Limit returns MaximumLinks for the bound build, if set.
func (m *Matcher) Limit() (int, bool) {
	return m.limit, m.hasLimit
}

func (m *Matcher) IsLinking(ev *combatlog.Event) bool {
	return m.spec.LinkingEventType.Has(ev.Type) && m.spec.LinkingEventID.Match(ev.Ability)
}

// Accepts applies every per-pair rule except the time window.
func (m *Matcher) Accepts(linking, ref *combatlog.Event) bool {
	s := m.spec

	if ref == linking {
		return false
	}
	if !s.ReferencedEventType.Has(ref.Type) || !s.ReferencedEventID.Match(ref.Ability) {
		return false
	}
	if !s.AnySource && !linking.SameSource(ref) {
		return false
	}
	if !s.AnyTarget && !linking.SameTarget(ref) {
		return false
	}
	if s.RequiresExact {
		measure := s.Measure
		if measure == nil {
			measure = (*combatlog.Event).Units
		}
		if measure(ref) != m.expected {
			return false
		}
	}
	if s.AdditionalCondition != nil && !s.AdditionalCondition(linking, ref) {
		return false
	}
	return true
}

// Search returns the positions of the candidates for events[i] in search
// order, after applying the direction fallback and the match mode. The
// nearest timestamp comes first and equal distances keep stream order, so
// MatchLast picks the earliest of the farthest candidates. MaximumLinks is
// left to the caller.
//
// skip, when not nil, hides events from the search (used to exclude events
// already claimed by someone else).
func (m *Matcher) Search(events []*combatlog.Event, i int, skip func(*combatlog.Event) bool) []int {
	var found []int

	switch m.spec.SearchDirection {
	case ForwardsOnly:
		found = m.forward(events, i, skip)
	case BackwardsOnly:
		found = m.backward(events, i, skip)
	case ForwardsFirst:
		found = m.forward(events, i, skip)
		if len(found) == 0 {
			found = m.backward(events, i, skip)
		}
	case BackwardsFirst:
		found = m.backward(events, i, skip)
		if len(found) == 0 {
			found = m.forward(events, i, skip)
		}
	default:
		found = merge(events, i, m.forward(events, i, skip), m.backward(events, i, skip))
	}

	if len(found) == 0 {
		return nil
	}

	switch m.spec.MatchMode {
	case MatchFirst:
		return found[:1]
	case MatchLast:
		last := len(found) - 1
		d := distance(events, i, found[last])
		for last > 0 && distance(events, i, found[last-1]) == d {
			last--
		}
		return found[last : last+1]
	}
	return found
}

func distance(events []*combatlog.Event, i, j int) int64 {
	d := events[j].Timestamp - events[i].Timestamp
	if d < 0 {
		return -d
	}
	return d
}

// merge interleaves the forward and backward candidates by distance. Backward
// candidates sit earlier in the stream, so they win ties.
func merge(events []*combatlog.Event, i int, fwd, bwd []int) []int {
	r := make([]int, 0, len(fwd)+len(bwd))
	for len(fwd) > 0 && len(bwd) > 0 {
		if distance(events, i, fwd[0]) < distance(events, i, bwd[0]) {
			r = append(r, fwd[0])
			fwd = fwd[1:]
		} else {
			r = append(r, bwd[0])
			bwd = bwd[1:]
		}
	}
	r = append(r, fwd...)
	return append(r, bwd...)
}

func (m *Matcher) forward(events []*combatlog.Event, i int, skip func(*combatlog.Event) bool) []int {
	linking := events[i]
	t := linking.Timestamp

	var r []int
	for j := i + 1; j < len(events); j++ {
		ref := events[j]
		dt := ref.Timestamp - t
		if dt > m.spec.ForwardBufferMs {
			break
		}
		if dt < 0 || dt < m.spec.MinimumBufferMs {
			continue
		}
		if skip != nil && skip(ref) {
			continue
		}
		if m.Accepts(linking, ref) {
			r = append(r, j)
		}
	}
	return r
}

func (m *Matcher) backward(events []*combatlog.Event, i int, skip func(*combatlog.Event) bool) []int {
	linking := events[i]
	t := linking.Timestamp

	var r []int
	for j := i - 1; j >= 0; j-- {
		ref := events[j]
		dt := t - ref.Timestamp
		if dt > m.spec.BackwardBufferMs {
			break
		}
		if dt < 0 || dt < m.spec.MinimumBufferMs {
			continue
		}
		if skip != nil && skip(ref) {
			continue
		}
		if m.Accepts(linking, ref) {
			r = append(r, j)
		}
	}

	// nearest first, equal timestamps in stream order
	sort.SliceStable(r, func(a, b int) bool {
		ta, tb := events[r[a]].Timestamp, events[r[b]].Timestamp
		if ta != tb {
			return ta > tb
		}
		return r[a] < r[b]
	})
	return r
}
