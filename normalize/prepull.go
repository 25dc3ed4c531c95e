package normalize

import (
	"logreplay/combatlog"
)

// PrepullBuffs fabricates the apply of auras that were already up when the
// log started: the first event seen for an aura instance is a remove, a stack
// change or a refresh. The apply is dated at the first event of the log and
// marked Prepull.
type PrepullBuffs struct {
	// Abilities restricts the pass. Empty means every aura.
	Abilities combatlog.IDSet
	// Debuffs includes debuffs as well as buffs.
	Debuffs bool
}

type auraKey struct {
	ability int
	target  combatlog.Actor
}

func (p *PrepullBuffs) Name() string { return "prepull_buffs" }

func (p *PrepullBuffs) Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	if len(events) == 0 {
		return events
	}
	first, _ := combatlog.Bounds(events)

	seen := make(map[auraKey]struct{})
	var fabricated []*combatlog.Event

	for _, ev := range events {
		apply, ok := p.applyOf(ev.Type)
		if !ok || !p.Abilities.Match(ev.Ability) {
			continue
		}

		k := auraKey{ev.Ability, ev.Target}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		if ev.Type.IsApply() {
			continue
		}

		fabricated = append(fabricated, log.Arena.Fabricate(combatlog.Event{
			Timestamp: first,
			Type:      apply,
			Ability:   ev.Ability,
			Source:    ev.Source,
			Target:    ev.Target,
			Prepull:   true,
		}))
	}

	if len(fabricated) == 0 {
		return events
	}
	return insertAt(events, 0, fabricated...)
}

// applyOf returns the apply type matching an aura event type.
func (p *PrepullBuffs) applyOf(t combatlog.EventType) (combatlog.EventType, bool) {
	switch t {
	case combatlog.ApplyBuff, combatlog.ApplyBuffStack, combatlog.RefreshBuff, combatlog.RemoveBuff, combatlog.RemoveBuffStack:
		return combatlog.ApplyBuff, true
	case combatlog.ApplyDebuff, combatlog.ApplyDebuffStack, combatlog.RefreshDebuff, combatlog.RemoveDebuff, combatlog.RemoveDebuffStack:
		return combatlog.ApplyDebuff, p.Debuffs
	}
	return "", false
}
