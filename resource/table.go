package resource

import (
	"fmt"

	"logreplay/combatlog"
)

// Unknown is the name of the catch-all that absorbs unclaimed events.
const Unknown = "UNKNOWN"

const (
	DefaultRelation        combatlog.Relation = "ResourceCause"
	DefaultReverseRelation combatlog.Relation = "ResourceEffect"
	DefaultUnknownRelation combatlog.Relation = "UnknownResourceCause"
)

// Table is a priority-ordered list of descriptors for one tracked resource.
// Rows earlier in Descriptors claim events first.
type Table struct {
	Name string

	// ResourceAbility is the buff that carries a stack based resource.
	ResourceAbility int
	// ResourceType is the resource type id of resourcechange events.
	ResourceType int
	// PoolTypes are the event types that make up the pool.
	PoolTypes combatlog.TypeSet

	// Relation links a resource event to its cause; ReverseRelation the cause
	// to the resource event. UnknownRelation links an unclaimed event to
	// itself.
	Relation        combatlog.Relation
	ReverseRelation combatlog.Relation
	UnknownRelation combatlog.Relation

	Descriptors []Descriptor
}

type TableError struct {
	Table   string
	Message string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("resource table %q: %s", e.Table, e.Message)
}

func (t *Table) Validate() error {
	if t.Name == "" {
		return &TableError{Table: t.Name, Message: "name is required"}
	}
	if len(t.PoolTypes) == 0 {
		return &TableError{Table: t.Name, Message: "pool types are required"}
	}
	if t.PoolTypes.Has(combatlog.ResourceChange) && t.ResourceType == 0 {
		return &TableError{Table: t.Name, Message: "resourcechange pools need a resource type"}
	}
	for _, typ := range t.PoolTypes {
		if typ != combatlog.ResourceChange && t.ResourceAbility == 0 {
			return &TableError{Table: t.Name, Message: fmt.Sprintf("%s pools need a resource ability", typ)}
		}
	}

	seen := make(map[string]struct{}, len(t.Descriptors))
	for i := range t.Descriptors {
		d := &t.Descriptors[i]
		if err := d.validate(t.Name); err != nil {
			return err
		}
		if _, ok := seen[d.Name]; ok {
			return &DescriptorError{Table: t.Name, Descriptor: d.Name, Message: "duplicate row name"}
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

func (t *Table) relations() (rel, rev, unknown combatlog.Relation) {
	rel, rev, unknown = t.Relation, t.ReverseRelation, t.UnknownRelation
	if rel == "" {
		rel = DefaultRelation
	}
	if rev == "" {
		rev = DefaultReverseRelation
	}
	if unknown == "" {
		unknown = DefaultUnknownRelation
	}
	return
}

// InPool reports whether ev carries the tracked resource of the table for the
// given player (0 accepts every player).
func (t *Table) InPool(ev *combatlog.Event, player int) bool {
	if !t.PoolTypes.Has(ev.Type) {
		return false
	}
	if player != 0 && ev.Target.ID != player {
		return false
	}

	if ev.Type == combatlog.ResourceChange {
		return ev.ResourceType == t.ResourceType && ev.ResourceChange != 0
	}
	return ev.Ability == t.ResourceAbility
}
