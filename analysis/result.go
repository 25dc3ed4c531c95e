package analysis

import (
	"time"

	"logreplay/combatlog"
	"logreplay/link"
	"logreplay/resource"
)

type Result struct {
	RunID   string        `json:"run_id"`
	Profile string        `json:"profile"`
	Player  int           `json:"player"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`

	Statistic Statistic `json:"statistic"`

	LinkStats    link.Stats              `json:"link_stats"`
	Attributions []*resource.Attribution `json:"attributions"`

	Events []*combatlog.Event      `json:"events,omitempty"`
	Links  []combatlog.LinkRecord `json:"links,omitempty"`
}

type Statistic struct {
	EventsIn   int `json:"events_in"`
	Skipped    int `json:"skipped"`
	EventsOut  int `json:"events_out"`
	Fabricated int `json:"fabricated"`
	Links      int `json:"links"`
	// Unknown counts pool events no row claimed, over all tables.
	Unknown int `json:"unknown"`
}

func (r *Result) Attribution(table string) *resource.Attribution {
	for _, a := range r.Attributions {
		if a.Table == table {
			return a
		}
	}
	return nil
}
