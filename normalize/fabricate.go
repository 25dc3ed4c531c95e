package normalize

import (
	"github.com/pkg/errors"

	"logreplay/combatlog"
)

// CastRule says that every apply of Buff comes from a cast of Ability.
type CastRule struct {
	Buff int
	// Ability is the cast to fabricate. Zero means the buff id itself.
	Ability int
	// BufferMs is how long before the apply a real cast may be.
	BufferMs int64
	// Relation, when set, links the fabricated cast to the apply.
	Relation        combatlog.Relation
	ReverseRelation combatlog.Relation
}

func (r *CastRule) ability() int {
	if r.Ability != 0 {
		return r.Ability
	}
	return r.Buff
}

// FabricateCast inserts the cast a buff-apply implies when the log has none.
// The fabricated cast takes the apply's timestamp, source and target and is
// placed right before it.
type FabricateCast struct {
	Rules []CastRule
}

type castKey struct {
	ability int
	source  combatlog.Actor
}

func (f *FabricateCast) Name() string { return "fabricate_cast" }

func (f *FabricateCast) Validate() error {
	for _, rule := range f.Rules {
		if rule.Buff == 0 {
			return errors.New("fabricate_cast: buff is required")
		}
		if rule.BufferMs < 0 {
			return errors.Errorf("fabricate_cast %d: buffer must not be negative", rule.Buff)
		}
	}
	return nil
}

func (f *FabricateCast) Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	rules := make(map[int]*CastRule, len(f.Rules))
	for i := range f.Rules {
		rules[f.Rules[i].Buff] = &f.Rules[i]
	}

	lastCast := make(map[castKey]int64)
	r := make([]*combatlog.Event, 0, len(events))

	for i, ev := range events {
		if ev.Type == combatlog.Cast {
			lastCast[castKey{ev.Ability, ev.Source}] = ev.Timestamp
			r = append(r, ev)
			continue
		}

		rule, ok := rules[ev.Ability]
		if !ok || ev.Type != combatlog.ApplyBuff {
			r = append(r, ev)
			continue
		}

		k := castKey{rule.ability(), ev.Source}
		if ts, ok := lastCast[k]; ok && ev.Timestamp-ts <= rule.BufferMs {
			r = append(r, ev)
			continue
		}
		if castFollows(events, i, k) {
			r = append(r, ev)
			continue
		}

		fab := log.Fabricate(ev, combatlog.Event{
			Type:    combatlog.Cast,
			Ability: k.ability,
		})
		if rule.Relation != "" {
			log.Link(fab, rule.Relation, ev, rule.ReverseRelation)
		}
		lastCast[k] = fab.Timestamp

		r = append(r, fab, ev)
	}

	return r
}

// castFollows reports whether the log puts the cast right after the apply at
// the same timestamp.
func castFollows(events []*combatlog.Event, i int, k castKey) bool {
	ts := events[i].Timestamp
	for j := i + 1; j < len(events) && events[j].Timestamp == ts; j++ {
		ev := events[j]
		if ev.Type == combatlog.Cast && ev.Ability == k.ability && ev.Source == k.source {
			return true
		}
	}
	return false
}
