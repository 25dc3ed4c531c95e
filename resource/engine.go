package resource

import (
	"go.uber.org/zap"

	"logreplay/combatlog"
)

// Engine attributes resource events to their causes.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Attribute runs every table in order against the sorted stream. Tables are
// validated first.
func (e *Engine) Attribute(log *combatlog.Log, events []*combatlog.Event, tables []Table) ([]*Attribution, error) {
	for i := range tables {
		if err := tables[i].Validate(); err != nil {
			return nil, err
		}
	}

	r := make([]*Attribution, 0, len(tables))
	for i := range tables {
		a, err := e.attribute(log, events, &tables[i])
		if err != nil {
			return nil, err
		}
		r = append(r, a)
	}
	return r, nil
}

// AttributeTable runs a single table.
func (e *Engine) AttributeTable(log *combatlog.Log, events []*combatlog.Event, t *Table) (*Attribution, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return e.attribute(log, events, t)
}

func (e *Engine) attribute(log *combatlog.Log, events []*combatlog.Event, t *Table) (*Attribution, error) {
	r := &run{
		log:    log,
		events: events,
		table:  t,
		result: newAttribution(t),
	}
	r.rel, r.rev, r.unknown = t.relations()

	for _, ev := range events {
		if t.InPool(ev, log.Player) {
			r.pool++
		}
	}

	for i := range t.Descriptors {
		d := &t.Descriptors[i]
		if !d.Enabled.Eval(log.Combatant) {
			e.logger.Debug("resource row disabled for build",
				zap.String("table", t.Name),
				zap.String("row", d.Name),
			)
			continue
		}

		var err error
		if d.Role == Periodic {
			r.periodic(i, d)
		} else {
			err = r.triggered(i, d)
		}
		if err != nil {
			return nil, err
		}
	}

	r.unclaimed()
	r.result.order(events)

	e.logger.Debug("resource table attributed",
		zap.String("table", t.Name),
		zap.Int("pool", r.pool),
		zap.Int("unknown", r.result.Unknown.Events),
	)
	return r.result, nil
}

////////////////////////////////////////////////////////////////////////////////////////////////////

type run struct {
	log    *combatlog.Log
	events []*combatlog.Event
	table  *Table

	rel, rev, unknown combatlog.Relation

	pool   int
	result *Attribution
}

func (r *run) available(ev *combatlog.Event) bool {
	if !r.table.InPool(ev, r.log.Player) {
		return false
	}
	_, claimed := r.result.index[ev.ID]
	return !claimed
}

func (r *run) claimed(ev *combatlog.Event) bool {
	_, ok := r.result.index[ev.ID]
	return ok
}

func (r *run) fromPlayer(ev *combatlog.Event) bool {
	return r.log.Player == 0 || ev.Source.ID == r.log.Player
}

// triggered attributes pool events to the causing events of a Spender or
// Builder row, in search order, until the row's maximum is used up.
func (r *run) triggered(row int, d *Descriptor) error {
	spec := d.linkSpec(r.table, r.available)
	if err := spec.Validate(); err != nil {
		return err
	}

	m := spec.Bind(r.log.Combatant)
	limit, capped := d.Maximum.Eval(r.log.Combatant)

	for i, cause := range r.events {
		if !m.IsLinking(cause) || !r.fromPlayer(cause) {
			continue
		}

		room := limit
		hit := false
		for _, j := range m.Search(r.events, i, r.claimed) {
			if capped && room <= 0 {
				break
			}

			ev := r.events[j]
			units := ev.Units()
			given := units
			if capped && given > room {
				given = room
			}

			r.claim(ev, row, d, cause, given)
			room -= given
			hit = true
		}

		if hit {
			r.result.Rows[row].Triggers++
		}
	}
	return nil
}

func (r *run) claim(ev *combatlog.Event, row int, d *Descriptor, cause *combatlog.Event, given int) {
	units := ev.Units()

	wasted := units - given
	if ev.Type == combatlog.ResourceChange {
		wasted += ev.Waste
	}
	if wasted > units {
		wasted = units
	}

	ability := d.SpellIDOverride
	if ability == 0 {
		ability = cause.Ability
	}

	r.record(Claim{
		Event:      ev.ID,
		Descriptor: d.Name,
		Ability:    ability,
		Cause:      cause.ID,
		Units:      units,
		Attributed: given,
		Wasted:     wasted,
	})
	r.result.Rows[row].add(units, wasted)

	r.log.Link(ev, r.rel, cause, r.rev)
}

// unclaimed hands every pool event nobody claimed to the catch-all.
func (r *run) unclaimed() {
	for _, ev := range r.events {
		if !r.available(ev) {
			continue
		}

		units := ev.Units()
		wasted := 0
		if ev.Type == combatlog.ResourceChange {
			wasted = ev.Waste
		}
		if wasted > units {
			wasted = units
		}

		r.record(Claim{
			Event:      ev.ID,
			Descriptor: Unknown,
			Cause:      ev.ID,
			Units:      units,
			Attributed: units,
			Wasted:     wasted,
		})
		r.result.Unknown.add(units, wasted)

		r.log.Links.Add(ev.ID, r.unknown, ev.ID)
	}
}

func (r *run) record(c Claim) {
	r.result.index[c.Event] = len(r.result.Claims)
	r.result.Claims = append(r.result.Claims, c)
}
