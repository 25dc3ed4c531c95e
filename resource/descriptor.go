package resource

import (
	"fmt"

	"logreplay/combatlog"
	"logreplay/link"
)

type Role int

const (
	// Spender descriptors claim resource losses.
	Spender Role = iota
	// Builder descriptors claim resource gains caused by a triggering event.
	Builder
	// Periodic descriptors claim gains on a fixed tick while a buff is up.
	Periodic
)

var roleNames = map[Role]string{
	Spender:  "spender",
	Builder:  "builder",
	Periodic: "periodic",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, ok := ParseRole(string(b))
	if !ok {
		return fmt.Errorf("unknown role %q", b)
	}
	*r = v
	return nil
}

func ParseRole(s string) (Role, bool) {
	for k, v := range roleNames {
		if v == s {
			return k, true
		}
	}
	return Builder, false
}

// Descriptor is one row of an attribution table: an ability (or effect) that
// may have caused resource events, and the window it is searched in.
type Descriptor struct {
	Name     string
	SpellIDs combatlog.IDSet
	Role     Role

	// Enabled gates the row on the player's build. Nil means always.
	Enabled combatlog.Predicate

	// LinkFromEventType is the type of the causing event (usually cast). For
	// Periodic rows the buff apply/remove events of SpellIDs are used instead.
	LinkFromEventType combatlog.TypeSet
	// LinkToEventType restricts which pool events this row may claim. Empty
	// means every pool event.
	LinkToEventType combatlog.TypeSet

	ForwardBufferMs  int64
	BackwardBufferMs int64
	MinimumBufferMs  int64
	SearchDirection  link.SearchDirection
	MatchMode        link.MatchMode

	// Maximum caps the units one causing event (or one periodic window) may
	// be attributed. Nil means unlimited.
	Maximum combatlog.Quantity
	// RequiresExact only accepts events whose units equal Maximum.
	RequiresExact bool

	// SpellIDOverride is the ability reported for this row instead of the
	// causing event's ability.
	SpellIDOverride int

	// FrequencyMs is the tick interval of Periodic rows.
	FrequencyMs int64
}

type DescriptorError struct {
	Table      string
	Descriptor string
	Message    string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("resource table %q, row %q: %s", e.Table, e.Descriptor, e.Message)
}

func (d *Descriptor) validate(table string) error {
	fail := func(msg string) error {
		return &DescriptorError{Table: table, Descriptor: d.Name, Message: msg}
	}

	switch {
	case d.Name == "":
		return fail("name is required")
	case d.Name == Unknown:
		return fail(Unknown + " is reserved for the catch-all")
	case len(d.SpellIDs) == 0:
		return fail("spell ids are required")
	case d.ForwardBufferMs < 0 || d.BackwardBufferMs < 0 || d.MinimumBufferMs < 0:
		return fail("buffers must not be negative")
	case d.RequiresExact && d.Maximum == nil:
		return fail("exact matching needs a maximum")
	}

	if _, ok := roleNames[d.Role]; !ok {
		return fail("unknown role")
	}
	if d.Role == Periodic {
		if d.FrequencyMs <= 0 {
			return fail("periodic rows need a positive frequency")
		}
	} else if len(d.LinkFromEventType) == 0 {
		return fail("link from event type is required")
	}
	return nil
}

// ReportedAbility is the ability id shown for the row.
func (d *Descriptor) ReportedAbility() int {
	if d.SpellIDOverride != 0 {
		return d.SpellIDOverride
	}
	if len(d.SpellIDs) > 0 {
		return d.SpellIDs[0]
	}
	return 0
}

// wants reports whether the row may claim ev at all: the direction of the
// resource change must fit the role.
func (d *Descriptor) wants(ev *combatlog.Event) bool {
	if len(d.LinkToEventType) > 0 && !d.LinkToEventType.Has(ev.Type) {
		return false
	}
	if d.Role == Spender {
		return isLoss(ev)
	}
	return !isLoss(ev)
}

// linkSpec expresses a Spender/Builder row as a link spec so the search rules
// are exactly those of the link engine.
func (d *Descriptor) linkSpec(t *Table, inPool func(*combatlog.Event) bool) link.Spec {
	ref := d.LinkToEventType
	if len(ref) == 0 {
		ref = t.PoolTypes
	}

	rel, _, _ := t.relations()

	s := link.Spec{
		LinkingEventID:      d.SpellIDs,
		LinkingEventType:    d.LinkFromEventType,
		ReferencedEventType: ref,
		Relation:            rel,
		ForwardBufferMs:     d.ForwardBufferMs,
		BackwardBufferMs:    d.BackwardBufferMs,
		MinimumBufferMs:     d.MinimumBufferMs,
		SearchDirection:     d.SearchDirection,
		MatchMode:           d.MatchMode,
		AnySource:           true,
		AnyTarget:           true,
		AdditionalCondition: func(_, ref *combatlog.Event) bool {
			return inPool(ref) && d.wants(ref)
		},
		IsActive: d.Enabled,
	}
	if d.RequiresExact {
		s.RequiresExact = true
		s.Expected = d.Maximum
	}
	return s
}

func isLoss(ev *combatlog.Event) bool {
	switch ev.Type {
	case combatlog.ResourceChange:
		return ev.ResourceChange < 0
	case combatlog.RemoveBuff, combatlog.RemoveBuffStack, combatlog.RemoveDebuff, combatlog.RemoveDebuffStack:
		return true
	}
	return false
}
