package profile

import (
	"logreplay/combatlog"
	"logreplay/link"
	"logreplay/normalize"
	"logreplay/resource"
)

// Conditions are the pair conditions a link may name.
var Conditions = map[string]func(linking, referenced *combatlog.Event) bool{
	"different_target": func(l, r *combatlog.Event) bool { return l.Target != r.Target },
	"same_target_id":   func(l, r *combatlog.Event) bool { return l.Target.ID == r.Target.ID },
	"not_fabricated":   func(_, r *combatlog.Event) bool { return !r.Fabricated },
	"not_prepull":      func(_, r *combatlog.Event) bool { return !r.Prepull },
}

// Compiled is a profile turned into engine inputs. Every call to Compile
// returns fresh values, so runs never share configuration state.
type Compiled struct {
	Name   string
	Chain  *normalize.Chain
	Links  []link.Spec
	Tables []resource.Table
}

// Compile validates the profile and builds the chain, link specs and
// resource tables.
func (p *Profile) Compile() (*Compiled, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c := &Compiled{
		Name:  p.Name,
		Chain: normalize.NewChain(),
		Links: compileLinks(p.Links),
	}
	c.Chain.Strict = p.Strict

	for i := range p.Normalizers {
		c.Chain.Append(p.Normalizers[i].compile())
	}
	for i := range p.Resources {
		c.Tables = append(c.Tables, p.Resources[i].compile())
	}

	return c, nil
}

func compileLinks(links []LinkConfig) []link.Spec {
	r := make([]link.Spec, 0, len(links))
	for i := range links {
		r = append(r, links[i].compile())
	}
	return r
}

func (l *LinkConfig) compile() link.Spec {
	dir, _ := link.ParseDirection(l.Direction)
	mode, _ := link.ParseMatchMode(l.Match)

	s := link.Spec{
		LinkingEventID:      combatlog.IDs(l.From.IDs...),
		LinkingEventType:    l.From.typeSet(),
		ReferencedEventID:   combatlog.IDs(l.To.IDs...),
		ReferencedEventType: l.To.typeSet(),
		Relation:            combatlog.Relation(l.Relation),
		ReverseRelation:     combatlog.Relation(l.Reverse),
		ForwardBufferMs:     l.ForwardMs,
		BackwardBufferMs:    l.BackwardMs,
		MinimumBufferMs:     l.MinimumMs,
		MaximumLinks:        l.MaximumLinks.Quantity(),
		SearchDirection:     dir,
		MatchMode:           mode,
		AnySource:           l.AnySource,
		AnyTarget:           l.AnyTarget,
		AdditionalCondition: Conditions[l.Condition],
		IsActive:            l.Enabled.Predicate(),
	}
	if l.Exact != nil {
		s.RequiresExact = true
		s.Expected = l.Exact.Quantity()
	}
	return s
}

func (n *NormalizerConfig) compile() normalize.Normalizer {
	switch n.Kind {
	case "dedup":
		return &normalize.Dedup{
			Types:     eventTypes(n.Types),
			Abilities: combatlog.IDs(n.Abilities...),
		}

	case "prepull_buffs":
		return &normalize.PrepullBuffs{
			Abilities: combatlog.IDs(n.Abilities...),
			Debuffs:   n.Debuffs,
		}

	case "fabricate_cast":
		f := &normalize.FabricateCast{}
		for _, c := range n.Casts {
			f.Rules = append(f.Rules, normalize.CastRule{
				Buff:            c.Buff,
				Ability:         c.Ability,
				BufferMs:        c.BufferMs,
				Relation:        combatlog.Relation(c.Relation),
				ReverseRelation: combatlog.Relation(c.Reverse),
			})
		}
		return f

	case "channel":
		return &normalize.Channel{Buff: n.Buff, Ability: n.Ability, Keep: n.Keep}

	case "chain":
		return &normalize.ChainCasts{
			Cast:            n.Cast,
			Effect:          n.Effect,
			Relation:        combatlog.Relation(n.Relation),
			ReverseRelation: combatlog.Relation(n.Reverse),
		}

	case "reorder":
		return &normalize.Reorder{
			Before:    normalize.Match{Types: n.Before.typeSet(), Abilities: combatlog.IDs(n.Before.IDs...)},
			After:     normalize.Match{Types: n.After.typeSet(), Abilities: combatlog.IDs(n.After.IDs...)},
			BufferMs:  n.BufferMs,
			AnySource: n.AnySource,
		}

	case "link":
		return &normalize.Linker{Label: n.Label, Specs: compileLinks(n.Links)}

	case "sort":
		return normalize.Sort
	}

	// validate accepted a kind this switch does not know
	panic("profile: no compiler for normalizer kind " + n.Kind)
}

func (t *TableConfig) compile() resource.Table {
	r := resource.Table{
		Name:            t.Name,
		ResourceAbility: t.ResourceAbility,
		ResourceType:    t.ResourceType,
		PoolTypes:       eventTypes(t.Pool),
		Relation:        combatlog.Relation(t.Relation),
		ReverseRelation: combatlog.Relation(t.Reverse),
		UnknownRelation: combatlog.Relation(t.UnknownRelation),
	}

	for _, d := range t.Descriptors {
		role, _ := resource.ParseRole(d.Role)
		dir, _ := link.ParseDirection(d.Direction)
		mode, _ := link.ParseMatchMode(d.Match)

		r.Descriptors = append(r.Descriptors, resource.Descriptor{
			Name:              d.Name,
			SpellIDs:          combatlog.IDs(d.Spells...),
			Role:              role,
			Enabled:           d.Enabled.Predicate(),
			LinkFromEventType: eventTypes(d.From),
			LinkToEventType:   eventTypes(d.To),
			ForwardBufferMs:   d.ForwardMs,
			BackwardBufferMs:  d.BackwardMs,
			MinimumBufferMs:   d.MinimumMs,
			SearchDirection:   dir,
			MatchMode:         mode,
			Maximum:           d.Maximum.Quantity(),
			RequiresExact:     d.Exact,
			SpellIDOverride:   d.Override,
			FrequencyMs:       d.FrequencyMs,
		})
	}
	return r
}
