package combatlog

import "fmt"

// EventID is the stable identity of an event inside one run. It never changes
// when passes insert, drop or reorder events.
type EventID int32

// NoEvent is returned by lookups that found nothing.
const NoEvent EventID = -1

type Actor struct {
	ID       int `json:"id"`
	Instance int `json:"instance,omitempty"`
}

func (a Actor) String() string {
	if a.Instance == 0 {
		return fmt.Sprint(a.ID)
	}
	return fmt.Sprintf("%d.%d", a.ID, a.Instance)
}

// Event is one entry of the combat log. Events are treated as immutable once
// they are owned by an Arena; passes that need a different timestamp go
// through Arena.Retime.
type Event struct {
	ID        EventID   `json:"id"`
	Timestamp int64     `json:"timestamp"`
	Type      EventType `json:"type"`
	Ability   int       `json:"ability,omitempty"`

	Source Actor `json:"source"`
	Target Actor `json:"target"`

	// damage / heal
	Amount   int `json:"amount,omitempty"`
	Absorbed int `json:"absorbed,omitempty"`
	Overheal int `json:"overheal,omitempty"`
	HitType  int `json:"hitType,omitempty"`

	// resourcechange
	ResourceType   int `json:"resourceType,omitempty"`
	ResourceChange int `json:"resourceChange,omitempty"`
	Waste          int `json:"waste,omitempty"`

	// aura stacks
	Stack int `json:"stack,omitempty"`

	// beginchannel / endchannel
	Duration int64 `json:"duration,omitempty"`

	Fabricated bool `json:"fabricated,omitempty"`
	Prepull    bool `json:"prepull,omitempty"`
}

func (e *Event) String() string {
	s := fmt.Sprintf("#%d %d %s %d %s>%s", e.ID, e.Timestamp, e.Type, e.Ability, e.Source, e.Target)
	if e.Fabricated {
		s += " (fabricated)"
	}
	return s
}

// Units is the amount of resource the event represents: the absolute resource
// change for resourcechange events, one for every other event (one stack).
func (e *Event) Units() int {
	if e.Type == ResourceChange {
		if e.ResourceChange < 0 {
			return -e.ResourceChange
		}
		return e.ResourceChange
	}
	return 1
}

// SameSource reports whether both events come from the same actor instance.
func (e *Event) SameSource(o *Event) bool {
	return e.Source == o.Source
}

// SameTarget reports whether both events hit the same actor instance.
func (e *Event) SameTarget(o *Event) bool {
	return e.Target == o.Target
}
