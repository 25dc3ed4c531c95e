package normalize

import (
	"github.com/pkg/errors"

	"logreplay/combatlog"
)

const (
	RelationChainedCast     combatlog.Relation = "ChainedCast"
	RelationChainedFromCast combatlog.Relation = "ChainedFromCast"
)

// ChainCasts links a cast to the previous cast of the same ability when an
// effect instance of the previous one is still active, so analyzers can tell
// a continuation from a fresh application.
//
// Active instances are counted from the apply/remove events of Effect, not
// from the effect's nominal duration.
type ChainCasts struct {
	Cast   int
	Effect int

	Relation        combatlog.Relation
	ReverseRelation combatlog.Relation
}

func (c *ChainCasts) Name() string { return "chain" }

func (c *ChainCasts) Validate() error {
	if c.Cast == 0 || c.Effect == 0 {
		return errors.New("chain: cast and effect are required")
	}
	return nil
}

func (c *ChainCasts) relations() (combatlog.Relation, combatlog.Relation) {
	rel, rev := c.Relation, c.ReverseRelation
	if rel == "" {
		rel = RelationChainedCast
	}
	if rev == "" {
		rev = RelationChainedFromCast
	}
	return rel, rev
}

func (c *ChainCasts) Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	rel, rev := c.relations()

	active := make(map[combatlog.Actor]int)
	prev := make(map[combatlog.Actor]*combatlog.Event)

	for _, ev := range events {
		switch {
		case ev.Type == combatlog.Cast && ev.Ability == c.Cast:
			if p, ok := prev[ev.Source]; ok && active[ev.Source] > 0 {
				log.Link(p, rel, ev, rev)
			}
			prev[ev.Source] = ev

		case ev.Ability == c.Effect && ev.Type.IsApply():
			active[ev.Source]++

		case ev.Ability == c.Effect && ev.Type.IsRemove():
			if active[ev.Source] > 0 {
				active[ev.Source]--
			}
		}
	}

	return events
}
