package resource

import (
	"sort"

	"logreplay/combatlog"
)

// window is one uptime of a periodic buff.
type window struct {
	start, end int64
	cause      *combatlog.Event
}

// windows collects the apply -> remove spans of the row's buffs on the player.
// A remove with no apply opens at the first event; a window still open at the
// end closes at the last event.
func (r *run) windows(d *Descriptor) []*window {
	first, last := combatlog.Bounds(r.events)

	var ws []*window
	open := make(map[combatlog.Actor]*window)

	for _, ev := range r.events {
		if !ev.Type.IsApply() && !ev.Type.IsRemove() {
			continue
		}
		if !d.SpellIDs.Match(ev.Ability) {
			continue
		}
		if r.log.Player != 0 && ev.Target.ID != r.log.Player {
			continue
		}

		if ev.Type.IsApply() {
			if _, ok := open[ev.Target]; ok {
				continue
			}
			w := &window{start: ev.Timestamp, cause: ev}
			open[ev.Target] = w
			ws = append(ws, w)
			continue
		}

		w, ok := open[ev.Target]
		if !ok {
			w = &window{start: first, cause: ev}
			ws = append(ws, w)
		}
		w.end = ev.Timestamp
		delete(open, ev.Target)
	}

	for _, w := range open {
		w.end = last
	}
	return ws
}

// periodic walks the expected ticks of every window and claims the nearest
// free pool event for each, until the window's maximum is used up.
func (r *run) periodic(row int, d *Descriptor) {
	limit, capped := d.Maximum.Eval(r.log.Combatant)

	for _, w := range r.windows(d) {
		room := limit
		hit := false

		for ts := w.start + d.FrequencyMs; ts <= w.end; ts += d.FrequencyMs {
			if capped && room <= 0 {
				break
			}

			ev := r.nearest(d, ts)
			if ev == nil {
				continue
			}

			given := ev.Units()
			if capped && given > room {
				given = room
			}
			r.claim(ev, row, d, w.cause, given)
			room -= given
			hit = true
		}

		if hit {
			r.result.Rows[row].Triggers++
		}
	}
}

// nearest returns the free pool event closest to ts inside the row's buffers.
// Equal distances resolve to the earlier stream position.
func (r *run) nearest(d *Descriptor, ts int64) *combatlog.Event {
	from := ts - d.BackwardBufferMs
	to := ts + d.ForwardBufferMs

	i := sort.Search(len(r.events), func(i int) bool {
		return r.events[i].Timestamp >= from
	})

	var (
		best     *combatlog.Event
		bestDist int64
	)
	for ; i < len(r.events) && r.events[i].Timestamp <= to; i++ {
		ev := r.events[i]
		if !r.available(ev) || !d.wants(ev) {
			continue
		}

		dist := ev.Timestamp - ts
		if dist < 0 {
			dist = -dist
		}
		if best == nil || dist < bestDist {
			best, bestDist = ev, dist
		}
	}
	return best
}
