package normalize

import (
	"sort"

	"logreplay/combatlog"
)

// InsertSorted returns events with ev placed after every event whose
// timestamp is lower or equal. events is not modified.
func InsertSorted(events []*combatlog.Event, ev *combatlog.Event) []*combatlog.Event {
	i := sort.Search(len(events), func(i int) bool {
		return events[i].Timestamp > ev.Timestamp
	})
	return insertAt(events, i, ev)
}

// InsertLeading returns events with ev placed before every event sharing its
// timestamp.
func InsertLeading(events []*combatlog.Event, ev *combatlog.Event) []*combatlog.Event {
	i := sort.Search(len(events), func(i int) bool {
		return events[i].Timestamp >= ev.Timestamp
	})
	return insertAt(events, i, ev)
}

func insertAt(events []*combatlog.Event, i int, ev ...*combatlog.Event) []*combatlog.Event {
	r := make([]*combatlog.Event, 0, len(events)+len(ev))
	r = append(r, events[:i]...)
	r = append(r, ev...)
	r = append(r, events[i:]...)
	return r
}

// Sort orders the stream by timestamp, keeping the log order of ties.
var Sort = Func("sort", func(_ *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	r := append([]*combatlog.Event(nil), events...)
	combatlog.SortStable(r)
	return r
})
