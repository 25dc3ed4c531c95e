package normalize

import (
	"sort"

	"github.com/pkg/errors"

	"logreplay/combatlog"
)

const (
	RelationChannelEnd   combatlog.Relation = "ChannelEnd"
	RelationChannelBegin combatlog.Relation = "ChannelBegin"
)

// Channel turns the apply/remove of a channel buff into BeginChannel and
// EndChannel events. EndChannel carries the channel duration. A channel still
// running at the end of the log is closed at the last event.
type Channel struct {
	Buff int
	// Ability is reported on the channel events. Zero means Buff.
	Ability int
	// Keep leaves the original buff events in the stream.
	Keep bool
}

func (c *Channel) Name() string { return "channel" }

func (c *Channel) Validate() error {
	if c.Buff == 0 {
		return errors.New("channel: buff is required")
	}
	return nil
}

func (c *Channel) Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	ability := c.Ability
	if ability == 0 {
		ability = c.Buff
	}

	open := make(map[combatlog.Actor]*combatlog.Event)
	r := make([]*combatlog.Event, 0, len(events))

	for _, ev := range events {
		if ev.Ability != c.Buff || (ev.Type != combatlog.ApplyBuff && ev.Type != combatlog.RemoveBuff) {
			r = append(r, ev)
			continue
		}

		if ev.Type == combatlog.ApplyBuff {
			if _, ok := open[ev.Source]; ok {
				r = append(r, ev)
				continue
			}

			begin := log.Fabricate(ev, combatlog.Event{Type: combatlog.BeginChannel, Ability: ability})
			open[ev.Source] = begin
			if c.Keep {
				r = append(r, ev)
			}
			r = append(r, begin)
			continue
		}

		begin, ok := open[ev.Source]
		if !ok {
			r = append(r, ev)
			continue
		}
		delete(open, ev.Source)

		if c.Keep {
			r = append(r, ev)
		}
		r = append(r, c.end(log, ev, begin, ev.Timestamp))
	}

	if len(open) > 0 && len(r) > 0 {
		_, last := combatlog.Bounds(r)
		for _, begin := range sortedOpen(open) {
			r = InsertSorted(r, c.end(log, nil, begin, last))
		}
	}

	return r
}

func (c *Channel) end(log *combatlog.Log, trigger, begin *combatlog.Event, ts int64) *combatlog.Event {
	target := begin.Target
	if trigger != nil {
		target = trigger.Target
	}

	end := log.Arena.Fabricate(combatlog.Event{
		Timestamp: ts,
		Type:      combatlog.EndChannel,
		Ability:   begin.Ability,
		Source:    begin.Source,
		Target:    target,
		Duration:  ts - begin.Timestamp,
	})

	log.Link(begin, RelationChannelEnd, end, RelationChannelBegin)
	return end
}

func sortedOpen(open map[combatlog.Actor]*combatlog.Event) []*combatlog.Event {
	r := make([]*combatlog.Event, 0, len(open))
	for _, ev := range open {
		r = append(r, ev)
	}
	sort.Slice(r, func(i, k int) bool {
		return r[i].ID < r[k].ID
	})
	return r
}
