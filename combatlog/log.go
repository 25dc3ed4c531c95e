package combatlog

import "sort"

// Log is the state owned by one report player analysis run: the event arena,
// the relation links and the build of the analyzed player.
//
// A Log is not safe for concurrent use. One run owns it from construction
// until its results are handed out.
type Log struct {
	Arena     *Arena
	Links     *Links
	Combatant Combatant

	// Player is the actor id of the analyzed player.
	Player int
}

// NewLog builds the run state from parsed events and returns the events in log
// order, ready for the normalizer chain.
func NewLog(events []Event, c Combatant, player int) (*Log, []*Event) {
	arena, ordered := NewArena(events)
	if c == nil {
		c = Build{}
	}

	return &Log{
		Arena:     arena,
		Links:     NewLinks(),
		Combatant: c,
		Player:    player,
	}, ordered
}

// Link records from -rel-> to and, when reverse is not empty, to -reverse-> from.
func (l *Log) Link(from *Event, rel Relation, to *Event, reverse Relation) {
	l.Links.Add(from.ID, rel, to.ID)
	if reverse != "" {
		l.Links.Add(to.ID, reverse, from.ID)
	}
}

// Related returns every event linked from ev under rel, in link order.
func (l *Log) Related(ev *Event, rel Relation) []*Event {
	ids := l.Links.Get(ev.ID, rel)
	if len(ids) == 0 {
		return nil
	}

	r := make([]*Event, 0, len(ids))
	for _, id := range ids {
		if e := l.Arena.Get(id); e != nil {
			r = append(r, e)
		}
	}
	return r
}

// RelatedOne returns the first event linked from ev under rel, or nil.
func (l *Log) RelatedOne(ev *Event, rel Relation) *Event {
	ids := l.Links.Get(ev.ID, rel)
	if len(ids) == 0 {
		return nil
	}
	return l.Arena.Get(ids[0])
}

func (l *Log) HasRelated(ev *Event, rel Relation) bool {
	return l.Links.Has(ev.ID, rel)
}

// Fabricate registers a synthesized event derived from the trigger: timestamp,
// source and target are inherited unless the template sets them.
func (l *Log) Fabricate(trigger *Event, tmpl Event) *Event {
	if trigger != nil {
		if tmpl.Timestamp == 0 {
			tmpl.Timestamp = trigger.Timestamp
		}
		if tmpl.Source == (Actor{}) {
			tmpl.Source = trigger.Source
		}
		if tmpl.Target == (Actor{}) {
			tmpl.Target = trigger.Target
		}
	}
	return l.Arena.Fabricate(tmpl)
}

////////////////////////////////////////////////////////////////////////////////////////////////////

// IsSorted reports whether timestamps never decrease.
func IsSorted(events []*Event) bool {
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			return false
		}
	}
	return true
}

// FirstDisorder returns the index of the first event whose timestamp is lower
// than its predecessor, or -1.
func FirstDisorder(events []*Event) int {
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			return i
		}
	}
	return -1
}

// SortStable orders events by timestamp in place; ties keep their current
// relative order.
func SortStable(events []*Event) {
	sort.SliceStable(events, func(i, k int) bool {
		return events[i].Timestamp < events[k].Timestamp
	})
}

// Bounds returns the first and last timestamp of a sorted stream.
func Bounds(events []*Event) (start, end int64) {
	if len(events) == 0 {
		return 0, 0
	}
	return events[0].Timestamp, events[len(events)-1].Timestamp
}
