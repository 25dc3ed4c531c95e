package combatlog

// EventType is the tag of the event union. Values match the "type" field of
// the combat log JSON.
type EventType string

const (
	Cast              EventType = "cast"
	BeginCast         EventType = "begincast"
	ApplyBuff         EventType = "applybuff"
	ApplyBuffStack    EventType = "applybuffstack"
	RefreshBuff       EventType = "refreshbuff"
	RemoveBuff        EventType = "removebuff"
	RemoveBuffStack   EventType = "removebuffstack"
	ApplyDebuff       EventType = "applydebuff"
	ApplyDebuffStack  EventType = "applydebuffstack"
	RefreshDebuff     EventType = "refreshdebuff"
	RemoveDebuff      EventType = "removedebuff"
	RemoveDebuffStack EventType = "removedebuffstack"
	Damage            EventType = "damage"
	Heal              EventType = "heal"
	Absorbed          EventType = "absorbed"
	ResourceChange    EventType = "resourcechange"
	Summon            EventType = "summon"
	Death             EventType = "death"
	Resurrect         EventType = "resurrect"
	CombatantInfo     EventType = "combatantinfo"
	FightEnd          EventType = "fightend"
	BeginChannel      EventType = "beginchannel"
	EndChannel        EventType = "endchannel"
)

var knownTypes = map[EventType]struct{}{
	Cast: {}, BeginCast: {},
	ApplyBuff: {}, ApplyBuffStack: {}, RefreshBuff: {}, RemoveBuff: {}, RemoveBuffStack: {},
	ApplyDebuff: {}, ApplyDebuffStack: {}, RefreshDebuff: {}, RemoveDebuff: {}, RemoveDebuffStack: {},
	Damage: {}, Heal: {}, Absorbed: {}, ResourceChange: {},
	Summon: {}, Death: {}, Resurrect: {}, CombatantInfo: {}, FightEnd: {},
	BeginChannel: {}, EndChannel: {},
}

// Known reports whether t is one of the event types this package models.
func (t EventType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// IsStack reports whether the event changes the stack count of an aura.
func (t EventType) IsStack() bool {
	switch t {
	case ApplyBuffStack, RemoveBuffStack, ApplyDebuffStack, RemoveDebuffStack:
		return true
	}
	return false
}

// IsApply reports whether the event starts an aura instance.
func (t EventType) IsApply() bool {
	return t == ApplyBuff || t == ApplyDebuff
}

// IsRemove reports whether the event ends an aura instance.
func (t EventType) IsRemove() bool {
	return t == RemoveBuff || t == RemoveDebuff
}

// IsAura reports whether the event belongs to the buff/debuff lifecycle.
func (t EventType) IsAura() bool {
	switch t {
	case ApplyBuff, ApplyBuffStack, RefreshBuff, RemoveBuff, RemoveBuffStack,
		ApplyDebuff, ApplyDebuffStack, RefreshDebuff, RemoveDebuff, RemoveDebuffStack:
		return true
	}
	return false
}

// TypeSet is a small membership set of event types. The zero value matches
// nothing.
type TypeSet []EventType

func Types(t ...EventType) TypeSet {
	return TypeSet(t)
}

func (s TypeSet) Has(t EventType) bool {
	for _, v := range s {
		if v == t {
			return true
		}
	}
	return false
}

// IDSet is a membership set of ability ids. An empty set matches any id.
type IDSet []int

func IDs(id ...int) IDSet {
	return IDSet(id)
}

func (s IDSet) Match(id int) bool {
	if len(s) == 0 {
		return true
	}
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}
