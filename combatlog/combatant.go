package combatlog

// Combatant answers build questions about the analyzed player. Implementations
// must be pure: the attribution engine calls them many times per run.
type Combatant interface {
	HasTalent(id int) bool
	TalentRank(id int) int
	HasItem(id int) bool
}

// Build is the plain-data Combatant decoded from the log or supplied by the
// caller.
type Build struct {
	Talents map[int]int `json:"talents,omitempty"`
	Items   []int       `json:"items,omitempty"`
}

func (b Build) HasTalent(id int) bool {
	return b.Talents[id] > 0
}

func (b Build) TalentRank(id int) int {
	return b.Talents[id]
}

func (b Build) HasItem(id int) bool {
	for _, v := range b.Items {
		if v == id {
			return true
		}
	}
	return false
}

func (b Build) Empty() bool {
	return len(b.Talents) == 0 && len(b.Items) == 0
}

// Quantity is a number that may depend on the player's build. A nil Quantity
// means "not set".
type Quantity func(c Combatant) int

// Fixed returns a Quantity that ignores the build.
func Fixed(n int) Quantity {
	return func(Combatant) int { return n }
}

// Eval returns the quantity for c and whether it was set at all.
func (q Quantity) Eval(c Combatant) (int, bool) {
	if q == nil {
		return 0, false
	}
	return q(c), true
}

// Predicate is a yes/no question about the player's build. A nil Predicate
// means "always".
type Predicate func(c Combatant) bool

func Always(Combatant) bool { return true }

func (p Predicate) Eval(c Combatant) bool {
	if p == nil {
		return true
	}
	return p(c)
}
