package resource

import (
	"logreplay/combatlog"
)

// Claim is the attribution of one pool event.
type Claim struct {
	Event combatlog.EventID `json:"event"`
	// Descriptor is the row name, or Unknown.
	Descriptor string `json:"descriptor"`
	// Ability is the reported ability: the row override, else the causing
	// event's ability. Zero for Unknown.
	Ability int `json:"ability,omitempty"`
	// Cause is the causing event, the event itself for Unknown.
	Cause combatlog.EventID `json:"cause"`

	Units      int `json:"units"`
	Attributed int `json:"attributed"`
	Wasted     int `json:"wasted,omitempty"`
}

// Summary accumulates the claims of one row.
type Summary struct {
	Name    string `json:"name"`
	Ability int    `json:"ability,omitempty"`
	Role    Role   `json:"role"`

	// Triggers counts causing events (periodic windows) that claimed anything.
	Triggers int `json:"triggers"`
	Events   int `json:"events"`

	Generated int `json:"generated"`
	Wasted    int `json:"wasted"`
	Effective int `json:"effective"`
}

func (s *Summary) add(units, wasted int) {
	if wasted > units {
		wasted = units
	}

	s.Events++
	s.Generated += units
	s.Wasted += wasted
	s.Effective += units - wasted
}

// Attribution is the outcome of one table over one stream.
type Attribution struct {
	Table   string    `json:"table"`
	Claims  []Claim   `json:"claims"`
	Rows    []Summary `json:"rows"`
	Unknown Summary   `json:"unknown"`

	index map[combatlog.EventID]int
}

func newAttribution(t *Table) *Attribution {
	a := &Attribution{
		Table: t.Name,
		Rows:  make([]Summary, len(t.Descriptors)),
		Unknown: Summary{
			Name: Unknown,
		},
		index: make(map[combatlog.EventID]int),
	}
	for i := range t.Descriptors {
		d := &t.Descriptors[i]
		a.Rows[i] = Summary{
			Name:    d.Name,
			Ability: d.ReportedAbility(),
			Role:    d.Role,
		}
	}
	return a
}

// ClaimOf returns the claim of a pool event.
func (a *Attribution) ClaimOf(id combatlog.EventID) (Claim, bool) {
	i, ok := a.index[id]
	if !ok {
		return Claim{}, false
	}
	return a.Claims[i], true
}

// Row returns the summary of the named row (Unknown included).
func (a *Attribution) Row(name string) (Summary, bool) {
	if name == Unknown {
		return a.Unknown, true
	}
	for _, s := range a.Rows {
		if s.Name == name {
			return s, true
		}
	}
	return Summary{}, false
}

// Total sums every row and the catch-all.
func (a *Attribution) Total() Summary {
	t := a.Unknown
	t.Name = a.Table
	for _, s := range a.Rows {
		t.Triggers += s.Triggers
		t.Events += s.Events
		t.Generated += s.Generated
		t.Wasted += s.Wasted
		t.Effective += s.Effective
	}
	return t
}

// order sorts the claims into stream order.
func (a *Attribution) order(events []*combatlog.Event) {
	claims := make([]Claim, 0, len(a.Claims))
	for _, ev := range events {
		if i, ok := a.index[ev.ID]; ok {
			claims = append(claims, a.Claims[i])
		}
	}
	for i, c := range claims {
		a.index[c.Event] = i
	}
	a.Claims = claims
}
