package profile

import (
	"fmt"

	"logreplay/combatlog"
	"logreplay/link"
	"logreplay/resource"
)

// ValidationError points at the offending field of a profile.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the profile without compiling it.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return invalid("name", "profile name is required")
	}

	for i := range p.Normalizers {
		if err := p.Normalizers[i].validate(fmt.Sprintf("normalizers[%d]", i)); err != nil {
			return err
		}
	}
	for i := range p.Links {
		if err := p.Links[i].validate(fmt.Sprintf("links[%d]", i)); err != nil {
			return err
		}
	}

	tables := make(map[string]struct{}, len(p.Resources))
	for i := range p.Resources {
		t := &p.Resources[i]
		if err := t.validate(fmt.Sprintf("resources[%d]", i)); err != nil {
			return err
		}
		if _, ok := tables[t.Name]; ok {
			return invalid(fmt.Sprintf("resources[%d].name", i), "duplicate table %q", t.Name)
		}
		tables[t.Name] = struct{}{}
	}

	return nil
}

func validTypes(field string, names []string, required bool) error {
	if required && len(names) == 0 {
		return invalid(field, "at least one event type is required")
	}
	for _, n := range names {
		if !combatlog.EventType(n).Known() {
			return invalid(field, "unknown event type %q", n)
		}
	}
	return nil
}

func (w *Window) validate(field string) error {
	if w.ForwardMs < 0 || w.BackwardMs < 0 || w.MinimumMs < 0 {
		return invalid(field, "buffers must not be negative")
	}
	if _, ok := link.ParseDirection(w.Direction); !ok {
		return invalid(field+".direction", "unknown direction %q", w.Direction)
	}
	if _, ok := link.ParseMatchMode(w.Match); !ok {
		return invalid(field+".match", "unknown match mode %q", w.Match)
	}
	return nil
}

func (l *LinkConfig) validate(field string) error {
	if l.Relation == "" {
		return invalid(field+".relation", "relation is required")
	}
	if err := validTypes(field+".from.types", l.From.Types, true); err != nil {
		return err
	}
	if err := validTypes(field+".to.types", l.To.Types, true); err != nil {
		return err
	}
	if err := l.Window.validate(field); err != nil {
		return err
	}
	if l.Condition != "" {
		if _, ok := Conditions[l.Condition]; !ok {
			return invalid(field+".condition", "unknown condition %q", l.Condition)
		}
	}
	return nil
}

func (n *NormalizerConfig) validate(field string) error {
	switch n.Kind {
	case "sort":
	case "dedup":
		return validTypes(field+".types", n.Types, false)
	case "prepull_buffs":
	case "fabricate_cast":
		if len(n.Casts) == 0 {
			return invalid(field+".casts", "at least one cast is required")
		}
		for i, c := range n.Casts {
			if c.Buff == 0 {
				return invalid(fmt.Sprintf("%s.casts[%d].buff", field, i), "buff is required")
			}
			if c.BufferMs < 0 {
				return invalid(fmt.Sprintf("%s.casts[%d].buffer_ms", field, i), "buffer must not be negative")
			}
		}
	case "channel":
		if n.Buff == 0 {
			return invalid(field+".buff", "buff is required")
		}
	case "chain":
		if n.Cast == 0 || n.Effect == 0 {
			return invalid(field, "cast and effect are required")
		}
	case "reorder":
		if n.Before == nil || n.After == nil {
			return invalid(field, "before and after are required")
		}
		if err := validTypes(field+".before.types", n.Before.Types, true); err != nil {
			return err
		}
		if err := validTypes(field+".after.types", n.After.Types, true); err != nil {
			return err
		}
		if n.BufferMs < 0 {
			return invalid(field+".buffer_ms", "buffer must not be negative")
		}
	case "link":
		if len(n.Links) == 0 {
			return invalid(field+".links", "at least one link is required")
		}
		for i := range n.Links {
			if err := n.Links[i].validate(fmt.Sprintf("%s.links[%d]", field, i)); err != nil {
				return err
			}
		}
	case "":
		return invalid(field+".kind", "kind is required")
	default:
		return invalid(field+".kind", "unknown normalizer %q", n.Kind)
	}
	return nil
}

func (t *TableConfig) validate(field string) error {
	if t.Name == "" {
		return invalid(field+".name", "table name is required")
	}
	if err := validTypes(field+".pool", t.Pool, true); err != nil {
		return err
	}

	rows := make(map[string]struct{}, len(t.Descriptors))
	for i := range t.Descriptors {
		d := &t.Descriptors[i]
		f := fmt.Sprintf("%s.descriptors[%d]", field, i)

		if d.Name == "" {
			return invalid(f+".name", "name is required")
		}
		if d.Name == resource.Unknown {
			return invalid(f+".name", "%s is reserved", resource.Unknown)
		}
		if _, ok := rows[d.Name]; ok {
			return invalid(f+".name", "duplicate row %q", d.Name)
		}
		rows[d.Name] = struct{}{}

		if len(d.Spells) == 0 {
			return invalid(f+".spells", "at least one spell is required")
		}

		role, ok := resource.ParseRole(d.Role)
		if !ok {
			return invalid(f+".role", "unknown role %q", d.Role)
		}
		if role == resource.Periodic {
			if d.FrequencyMs <= 0 {
				return invalid(f+".frequency_ms", "periodic rows need a positive frequency")
			}
		} else if err := validTypes(f+".from", d.From, true); err != nil {
			return err
		}
		if err := validTypes(f+".to", d.To, false); err != nil {
			return err
		}
		if err := d.Window.validate(f); err != nil {
			return err
		}
		if d.Exact && d.Maximum == nil {
			return invalid(f+".exact", "exact matching needs a maximum")
		}
	}

	compiled := t.compile()
	if err := compiled.Validate(); err != nil {
		return invalid(field, "%v", err)
	}
	return nil
}
