package profile

import (
	"gopkg.in/yaml.v3"

	"logreplay/combatlog"
)

// Profile is the declarative configuration of one analysis: the normalizer
// chain, the link specs applied after it and the resource tables.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Strict checks stream ordering after every normalizer.
	Strict bool `yaml:"strict,omitempty"`

	Normalizers []NormalizerConfig `yaml:"normalizers,omitempty"`
	Links       []LinkConfig       `yaml:"links,omitempty"`
	Resources   []TableConfig      `yaml:"resources,omitempty"`

	SourceFile string `yaml:"-"`
}

// Selector picks events by type and ability id.
type Selector struct {
	Types []string `yaml:"types"`
	IDs   []int    `yaml:"ids,omitempty"`
}

// Window is the search window shared by links and resource rows.
type Window struct {
	ForwardMs  int64  `yaml:"forward_ms,omitempty"`
	BackwardMs int64  `yaml:"backward_ms,omitempty"`
	MinimumMs  int64  `yaml:"minimum_ms,omitempty"`
	Direction  string `yaml:"direction,omitempty"`
	Match      string `yaml:"match,omitempty"`
}

// Condition is a build predicate. Every field that is set must hold.
type Condition struct {
	Talent    int `yaml:"talent,omitempty"`
	NotTalent int `yaml:"not_talent,omitempty"`
	Item      int `yaml:"item,omitempty"`
	NotItem   int `yaml:"not_item,omitempty"`
}

// Amount is a build dependent number: Base + PerRank * rank(Talent). In YAML
// it is either a plain integer or a mapping.
type Amount struct {
	Base    int `yaml:"base"`
	Talent  int `yaml:"talent,omitempty"`
	PerRank int `yaml:"per_rank,omitempty"`
}

func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*a = Amount{}
		return value.Decode(&a.Base)
	}

	type plain Amount
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*a = Amount(p)
	return nil
}

type LinkConfig struct {
	Relation string `yaml:"relation"`
	Reverse  string `yaml:"reverse,omitempty"`

	From Selector `yaml:"from"`
	To   Selector `yaml:"to"`

	Window `yaml:",inline"`

	MaximumLinks *Amount `yaml:"maximum_links,omitempty"`
	// Exact only links events whose resource units equal this amount.
	Exact *Amount `yaml:"exact,omitempty"`

	AnySource bool `yaml:"any_source,omitempty"`
	AnyTarget bool `yaml:"any_target,omitempty"`

	// Condition names a pair condition, see Conditions.
	Condition string     `yaml:"condition,omitempty"`
	Enabled   *Condition `yaml:"enabled,omitempty"`
}

// NormalizerConfig is one chain step. Kind selects which of the other fields
// apply.
type NormalizerConfig struct {
	Kind string `yaml:"kind"`

	// dedup, prepull_buffs
	Types     []string `yaml:"types,omitempty"`
	Abilities []int    `yaml:"abilities,omitempty"`
	Debuffs   bool     `yaml:"debuffs,omitempty"`

	// fabricate_cast
	Casts []CastConfig `yaml:"casts,omitempty"`

	// channel
	Buff    int  `yaml:"buff,omitempty"`
	Ability int  `yaml:"ability,omitempty"`
	Keep    bool `yaml:"keep,omitempty"`

	// chain
	Cast   int `yaml:"cast,omitempty"`
	Effect int `yaml:"effect,omitempty"`

	// reorder
	Before    *Selector `yaml:"before,omitempty"`
	After     *Selector `yaml:"after,omitempty"`
	BufferMs  int64     `yaml:"buffer_ms,omitempty"`
	AnySource bool      `yaml:"any_source,omitempty"`

	// chain, fabricate_cast
	Relation string `yaml:"relation,omitempty"`
	Reverse  string `yaml:"reverse,omitempty"`

	// link
	Label string       `yaml:"label,omitempty"`
	Links []LinkConfig `yaml:"links,omitempty"`
}

type CastConfig struct {
	Buff     int    `yaml:"buff"`
	Ability  int    `yaml:"ability,omitempty"`
	BufferMs int64  `yaml:"buffer_ms,omitempty"`
	Relation string `yaml:"relation,omitempty"`
	Reverse  string `yaml:"reverse,omitempty"`
}

type TableConfig struct {
	Name            string   `yaml:"name"`
	ResourceAbility int      `yaml:"resource_ability,omitempty"`
	ResourceType    int      `yaml:"resource_type,omitempty"`
	Pool            []string `yaml:"pool"`

	Relation        string `yaml:"relation,omitempty"`
	Reverse         string `yaml:"reverse,omitempty"`
	UnknownRelation string `yaml:"unknown_relation,omitempty"`

	Descriptors []DescriptorConfig `yaml:"descriptors"`
}

type DescriptorConfig struct {
	Name    string     `yaml:"name"`
	Spells  []int      `yaml:"spells"`
	Role    string     `yaml:"role"`
	Enabled *Condition `yaml:"enabled,omitempty"`

	From []string `yaml:"from,omitempty"`
	To   []string `yaml:"to,omitempty"`

	Window `yaml:",inline"`

	Maximum     *Amount `yaml:"maximum,omitempty"`
	Exact       bool    `yaml:"exact,omitempty"`
	Override    int     `yaml:"override,omitempty"`
	FrequencyMs int64   `yaml:"frequency_ms,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////////////////////////

func (c *Condition) Predicate() combatlog.Predicate {
	if c == nil {
		return nil
	}
	cond := *c
	return func(b combatlog.Combatant) bool {
		if cond.Talent != 0 && !b.HasTalent(cond.Talent) {
			return false
		}
		if cond.NotTalent != 0 && b.HasTalent(cond.NotTalent) {
			return false
		}
		if cond.Item != 0 && !b.HasItem(cond.Item) {
			return false
		}
		if cond.NotItem != 0 && b.HasItem(cond.NotItem) {
			return false
		}
		return true
	}
}

func (a *Amount) Quantity() combatlog.Quantity {
	if a == nil {
		return nil
	}
	amount := *a
	if amount.Talent == 0 || amount.PerRank == 0 {
		return combatlog.Fixed(amount.Base)
	}
	return func(b combatlog.Combatant) int {
		return amount.Base + amount.PerRank*b.TalentRank(amount.Talent)
	}
}

func (s *Selector) typeSet() combatlog.TypeSet {
	return eventTypes(s.Types)
}

func eventTypes(names []string) combatlog.TypeSet {
	r := make(combatlog.TypeSet, len(names))
	for i, n := range names {
		r[i] = combatlog.EventType(n)
	}
	return r
}
