package combatlog

import "sort"

// Relation names a directed association between two events.
type Relation string

type linkKey struct {
	from EventID
	rel  Relation
}

// Links is an append-only multimap (event, relation) -> events. Targets keep
// the order in which they were linked.
type Links struct {
	m     map[linkKey][]EventID
	count int
}

func NewLinks() *Links {
	return &Links{
		m: make(map[linkKey][]EventID),
	}
}

// Add records from -rel-> to. Adding the same triple twice is a no-op and
// reports false.
func (l *Links) Add(from EventID, rel Relation, to EventID) bool {
	k := linkKey{from, rel}
	for _, v := range l.m[k] {
		if v == to {
			return false
		}
	}

	l.m[k] = append(l.m[k], to)
	l.count++
	return true
}

func (l *Links) Get(from EventID, rel Relation) []EventID {
	return l.m[linkKey{from, rel}]
}

func (l *Links) Has(from EventID, rel Relation) bool {
	return len(l.m[linkKey{from, rel}]) > 0
}

func (l *Links) Count(from EventID, rel Relation) int {
	return len(l.m[linkKey{from, rel}])
}

// Len is the total number of recorded links.
func (l *Links) Len() int {
	return l.count
}

type LinkRecord struct {
	From     EventID  `json:"from"`
	Relation Relation `json:"relation"`
	To       EventID  `json:"to"`
}

// Snapshot lists every link ordered by source id and relation name; targets of
// one (source, relation) keep their link order.
func (l *Links) Snapshot() []LinkRecord {
	keys := make([]linkKey, 0, len(l.m))
	for k := range l.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, k int) bool {
		if keys[i].from != keys[k].from {
			return keys[i].from < keys[k].from
		}
		return keys[i].rel < keys[k].rel
	})

	r := make([]LinkRecord, 0, l.count)
	for _, k := range keys {
		for _, to := range l.m[k] {
			r = append(r, LinkRecord{From: k.from, Relation: k.rel, To: to})
		}
	}
	return r
}

// CountByRelation returns the number of links per relation name.
func (l *Links) CountByRelation() map[Relation]int {
	r := make(map[Relation]int)
	for k, v := range l.m {
		r[k.rel] += len(v)
	}
	return r
}
