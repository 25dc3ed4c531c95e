package link

import (
	"fmt"

	"logreplay/combatlog"
)

type SearchDirection int

const (
	// Both scans both ways and orders the candidates by distance from the
	// linking event. Equal distances go to the earlier stream position.
	Both SearchDirection = iota
	ForwardsOnly
	BackwardsOnly
	// ForwardsFirst scans backward only when the forward scan found nothing.
	ForwardsFirst
	// BackwardsFirst scans forward only when the backward scan found nothing.
	BackwardsFirst
)

var directionNames = map[SearchDirection]string{
	Both:           "both",
	ForwardsOnly:   "forwards_only",
	BackwardsOnly:  "backwards_only",
	ForwardsFirst:  "forwards_first",
	BackwardsFirst: "backwards_first",
}

func (d SearchDirection) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection maps a configuration name to a SearchDirection. The empty
// string is Both.
func ParseDirection(s string) (SearchDirection, bool) {
	if s == "" {
		return Both, true
	}
	for k, v := range directionNames {
		if v == s {
			return k, true
		}
	}
	return Both, false
}

type MatchMode int

const (
	// MatchAll keeps every candidate, up to MaximumLinks.
	MatchAll MatchMode = iota
	MatchFirst
	MatchLast
)

var modeNames = map[MatchMode]string{
	MatchAll:   "all",
	MatchFirst: "first",
	MatchLast:  "last",
}

func (m MatchMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMatchMode(s string) (MatchMode, bool) {
	if s == "" {
		return MatchAll, true
	}
	for k, v := range modeNames {
		if v == s {
			return k, true
		}
	}
	return MatchAll, false
}

// Spec describes what may be linked to what. It is plain data evaluated by the
// Engine.
type Spec struct {
	LinkingEventID      combatlog.IDSet
	LinkingEventType    combatlog.TypeSet
	ReferencedEventID   combatlog.IDSet
	ReferencedEventType combatlog.TypeSet

	Relation        combatlog.Relation
	ReverseRelation combatlog.Relation

	ForwardBufferMs  int64
	BackwardBufferMs int64
	// MinimumBufferMs ignores candidates closer than this to the linking event.
	MinimumBufferMs int64

	// MaximumLinks caps the number of events one linking event may hold under
	// Relation. Nil means unlimited.
	MaximumLinks combatlog.Quantity

	SearchDirection SearchDirection
	MatchMode       MatchMode

	AnySource bool
	AnyTarget bool

	// AdditionalCondition is evaluated last on every candidate pair.
	AdditionalCondition func(linking, referenced *combatlog.Event) bool

	// IsActive gates the whole spec on the player's build.
	IsActive combatlog.Predicate

	// RequiresExact accepts a candidate only when Measure(referenced) equals
	// Expected for the player's build. Measure defaults to Event.Units.
	RequiresExact bool
	Measure       func(referenced *combatlog.Event) int
	Expected      combatlog.Quantity
}

type SpecError struct {
	Relation combatlog.Relation
	Message  string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("link %q: %s", e.Relation, e.Message)
}

// Validate reports configuration mistakes. A spec that fails validation aborts
// the run instead of silently linking nothing.
func (s *Spec) Validate() error {
	switch {
	case s.Relation == "":
		return &SpecError{Relation: s.Relation, Message: "relation is required"}
	case len(s.LinkingEventType) == 0:
		return &SpecError{Relation: s.Relation, Message: "linking event type is required"}
	case len(s.ReferencedEventType) == 0:
		return &SpecError{Relation: s.Relation, Message: "referenced event type is required"}
	case s.ForwardBufferMs < 0 || s.BackwardBufferMs < 0 || s.MinimumBufferMs < 0:
		return &SpecError{Relation: s.Relation, Message: "buffers must not be negative"}
	case s.RequiresExact && s.Expected == nil:
		return &SpecError{Relation: s.Relation, Message: "exact matching needs an expected value"}
	}

	if _, ok := directionNames[s.SearchDirection]; !ok {
		return &SpecError{Relation: s.Relation, Message: "unknown search direction"}
	}
	if _, ok := modeNames[s.MatchMode]; !ok {
		return &SpecError{Relation: s.Relation, Message: "unknown match mode"}
	}

	return nil
}
