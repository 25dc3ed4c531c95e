package combatlog

// Arena owns every event of one analysis run, indexed by EventID.
//
// Parsed events get the ids 0..n-1 in log order. Fabricated events are
// numbered from n upwards in fabrication order, so a given input always yields
// the same ids.
type Arena struct {
	events []*Event
	parsed int
}

// NewArena takes ownership of a copy of events and returns them in log order.
func NewArena(events []Event) (*Arena, []*Event) {
	a := &Arena{
		events: make([]*Event, len(events)),
		parsed: len(events),
	}

	ordered := make([]*Event, len(events))
	for i := range events {
		ev := events[i]
		ev.ID = EventID(i)
		ev.Fabricated = false

		a.events[i] = &ev
		ordered[i] = &ev
	}

	return a, ordered
}

func (a *Arena) Len() int {
	return len(a.events)
}

// Parsed is the number of events that came from the log itself.
func (a *Arena) Parsed() int {
	return a.parsed
}

func (a *Arena) Get(id EventID) *Event {
	if id < 0 || int(id) >= len(a.events) {
		return nil
	}
	return a.events[id]
}

// IsParsed reports whether id names an event present in the original log.
func (a *Arena) IsParsed(id EventID) bool {
	return id >= 0 && int(id) < a.parsed
}

// Fabricate registers a synthesized event. The template's ID and Fabricated
// fields are overwritten.
func (a *Arena) Fabricate(tmpl Event) *Event {
	ev := tmpl
	ev.ID = EventID(len(a.events))
	ev.Fabricated = true

	a.events = append(a.events, &ev)
	return &ev
}

// Retime replaces the event by a copy with another timestamp. The identity is
// kept, so links recorded against it stay valid; the old pointer is left
// untouched.
func (a *Arena) Retime(ev *Event, timestamp int64) *Event {
	cp := *ev
	cp.Timestamp = timestamp

	if a.Get(ev.ID) != nil {
		a.events[ev.ID] = &cp
	}
	return &cp
}
