package normalize

import (
	"logreplay/combatlog"
)

// Dedup drops events the log reports twice: same type, ability, timestamp,
// source and target. The first occurrence is kept.
type Dedup struct {
	// Types restricts the pass to these event types. Empty means all.
	Types combatlog.TypeSet
	// Abilities restricts the pass to these abilities. Empty means all.
	Abilities combatlog.IDSet
}

type dedupKey struct {
	typ     combatlog.EventType
	ability int
	source  combatlog.Actor
	target  combatlog.Actor
}

func (d *Dedup) Name() string { return "dedup" }

func (d *Dedup) Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	r := make([]*combatlog.Event, 0, len(events))

	// duplicates share a timestamp, so only the current one is remembered
	var (
		ts   int64
		seen = make(map[dedupKey]struct{})
	)
	for i, ev := range events {
		if i == 0 || ev.Timestamp != ts {
			ts = ev.Timestamp
			if len(seen) > 0 {
				seen = make(map[dedupKey]struct{})
			}
		}

		if !d.applies(ev) {
			r = append(r, ev)
			continue
		}

		k := dedupKey{ev.Type, ev.Ability, ev.Source, ev.Target}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		r = append(r, ev)
	}
	return r
}

func (d *Dedup) applies(ev *combatlog.Event) bool {
	if len(d.Types) > 0 && !d.Types.Has(ev.Type) {
		return false
	}
	return d.Abilities.Match(ev.Ability)
}
