package link

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"logreplay/combatlog"
)

const (
	spender   = 188196
	maelstrom = 344179
	player    = 1
	boss      = 50
)

func cast(ts int64, ability int) combatlog.Event {
	return combatlog.Event{Timestamp: ts, Type: combatlog.Cast, Ability: ability,
		Source: combatlog.Actor{ID: player}, Target: combatlog.Actor{ID: boss}}
}

func hit(ts int64, ability int) combatlog.Event {
	return combatlog.Event{Timestamp: ts, Type: combatlog.Damage, Ability: ability,
		Source: combatlog.Actor{ID: player}, Target: combatlog.Actor{ID: boss}}
}

func stackOff(ts int64) combatlog.Event {
	return combatlog.Event{Timestamp: ts, Type: combatlog.RemoveBuffStack, Ability: maelstrom,
		Source: combatlog.Actor{ID: player}, Target: combatlog.Actor{ID: player}}
}

func apply(t *testing.T, raw []combatlog.Event, specs ...Spec) (*combatlog.Log, []*combatlog.Event, Stats) {
	t.Helper()

	log, events := combatlog.NewLog(raw, nil, player)
	stats, err := NewEngine(zaptest.NewLogger(t)).Apply(log, events, specs)
	require.NoError(t, err)
	return log, events, stats
}

func TestSpenderLinksEveryStack(t *testing.T) {
	spec := Spec{
		LinkingEventID:      combatlog.IDs(spender),
		LinkingEventType:    combatlog.Types(combatlog.Cast),
		ReferencedEventID:   combatlog.IDs(maelstrom),
		ReferencedEventType: combatlog.Types(combatlog.RemoveBuffStack),
		Relation:            "SpentStack",
		ReverseRelation:     "SpentBy",
		ForwardBufferMs:     50,
		SearchDirection:     ForwardsOnly,
		AnyTarget:           true,
	}

	log, events, stats := apply(t, []combatlog.Event{
		cast(1000, spender),
		stackOff(1010),
		stackOff(1010),
	}, spec)

	assert.Equal(t, 2, stats["SpentStack"])
	assert.Equal(t, []*combatlog.Event{events[1], events[2]}, log.Related(events[0], "SpentStack"))
	assert.Same(t, events[0], log.RelatedOne(events[1], "SpentBy"))
	assert.Same(t, events[0], log.RelatedOne(events[2], "SpentBy"))
}

func TestSearchDirections(t *testing.T) {
	raw := []combatlog.Event{
		hit(900, 7),   // 0
		hit(950, 7),   // 1
		cast(1000, 7), // 2
		hit(1020, 7),  // 3
		hit(1090, 7),  // 4
		hit(1300, 7),  // 5
	}

	base := Spec{
		LinkingEventID:      combatlog.IDs(7),
		LinkingEventType:    combatlog.Types(combatlog.Cast),
		ReferencedEventID:   combatlog.IDs(7),
		ReferencedEventType: combatlog.Types(combatlog.Damage),
		Relation:            "Hit",
		ReverseRelation:     "HitBy",
		ForwardBufferMs:     100,
		BackwardBufferMs:    100,
	}

	tests := []struct {
		name      string
		direction SearchDirection
		mode      MatchMode
		want      []combatlog.EventID
	}{
		{"both all by distance", Both, MatchAll, []combatlog.EventID{3, 1, 4, 0}},
		{"both last", Both, MatchLast, []combatlog.EventID{0}},
		{"forwards only", ForwardsOnly, MatchAll, []combatlog.EventID{3, 4}},
		{"backwards only", BackwardsOnly, MatchAll, []combatlog.EventID{1, 0}},
		{"forwards first", ForwardsFirst, MatchFirst, []combatlog.EventID{3}},
		{"forwards last", ForwardsOnly, MatchLast, []combatlog.EventID{4}},
		{"backwards first nearest", BackwardsFirst, MatchFirst, []combatlog.EventID{1}},
		{"backwards last farthest", BackwardsOnly, MatchLast, []combatlog.EventID{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := base
			spec.SearchDirection = tt.direction
			spec.MatchMode = tt.mode

			log, events, _ := apply(t, raw, spec)
			assert.Equal(t, tt.want, log.Links.Get(events[2].ID, "Hit"))
		})
	}
}

func TestFallbackDirection(t *testing.T) {
	spec := Spec{
		LinkingEventType:    combatlog.Types(combatlog.Cast),
		ReferencedEventType: combatlog.Types(combatlog.Damage),
		Relation:            "Hit",
		ForwardBufferMs:     100,
		BackwardBufferMs:    100,
		SearchDirection:     ForwardsFirst,
	}

	log, events, _ := apply(t, []combatlog.Event{
		hit(950, 7),
		cast(1000, 7),
		hit(1500, 7),
	}, spec)

	assert.Equal(t, []combatlog.EventID{0}, log.Links.Get(events[1].ID, "Hit"))
}

func TestTieBreakStreamOrder(t *testing.T) {
	base := Spec{
		LinkingEventType:    combatlog.Types(combatlog.Cast),
		ReferencedEventType: combatlog.Types(combatlog.Damage),
		Relation:            "Hit",
		ForwardBufferMs:     100,
		BackwardBufferMs:    100,
	}

	tests := []struct {
		name      string
		direction SearchDirection
		mode      MatchMode
		raw       []combatlog.Event
		linking   int
		want      []combatlog.EventID
	}{
		{
			name: "backwards first", direction: BackwardsOnly, mode: MatchFirst,
			raw:     []combatlog.Event{hit(950, 1), hit(950, 2), cast(1000, 7)},
			linking: 2, want: []combatlog.EventID{0},
		},
		{
			name: "backwards last", direction: BackwardsOnly, mode: MatchLast,
			raw:     []combatlog.Event{hit(950, 1), hit(950, 2), cast(1000, 7)},
			linking: 2, want: []combatlog.EventID{0},
		},
		{
			name: "forwards last", direction: ForwardsOnly, mode: MatchLast,
			raw:     []combatlog.Event{cast(1000, 7), hit(1050, 1), hit(1050, 2)},
			linking: 0, want: []combatlog.EventID{1},
		},
		{
			name: "both first takes the nearer backward hit", direction: Both, mode: MatchFirst,
			raw:     []combatlog.Event{hit(990, 1), cast(1000, 7), hit(1090, 2)},
			linking: 1, want: []combatlog.EventID{0},
		},
		{
			name: "both equal distance goes backward", direction: Both, mode: MatchFirst,
			raw:     []combatlog.Event{hit(960, 1), cast(1000, 7), hit(1040, 2)},
			linking: 1, want: []combatlog.EventID{0},
		},
		{
			name: "both last equal distance goes backward", direction: Both, mode: MatchLast,
			raw:     []combatlog.Event{hit(960, 1), cast(1000, 7), hit(1010, 3), hit(1040, 2)},
			linking: 1, want: []combatlog.EventID{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := base
			spec.SearchDirection = tt.direction
			spec.MatchMode = tt.mode

			log, events, _ := apply(t, tt.raw, spec)
			assert.Equal(t, tt.want, log.Links.Get(events[tt.linking].ID, "Hit"),
				"equal distances resolve to the earlier stream position")
		})
	}
}

func TestMaximumLinks(t *testing.T) {
	spec := Spec{
		LinkingEventType:    combatlog.Types(combatlog.Cast),
		ReferencedEventType: combatlog.Types(combatlog.Damage),
		Relation:            "Hit",
		ForwardBufferMs:     1000,
		MaximumLinks:        combatlog.Fixed(2),
		SearchDirection:     ForwardsOnly,
	}

	log, events, _ := apply(t, []combatlog.Event{
		cast(0, 7),
		hit(10, 7),
		hit(20, 7),
		hit(30, 7),
	}, spec)
	assert.Len(t, log.Related(events[0], "Hit"), 2)

	// running the same spec again never goes over the cap
	_, err := NewEngine(nil).Apply(log, events, []Spec{spec})
	require.NoError(t, err)
	assert.Len(t, log.Related(events[0], "Hit"), 2)
}

func TestSourceTargetAndConditions(t *testing.T) {
	other := hit(10, 7)
	other.Target = combatlog.Actor{ID: boss + 1}

	foreign := hit(20, 7)
	foreign.Source = combatlog.Actor{ID: player + 1}

	raw := []combatlog.Event{cast(0, 7), other, foreign, hit(30, 7)}

	spec := Spec{
		LinkingEventType:    combatlog.Types(combatlog.Cast),
		ReferencedEventType: combatlog.Types(combatlog.Damage),
		Relation:            "Hit",
		ForwardBufferMs:     100,
	}

	log, events, _ := apply(t, raw, spec)
	assert.Equal(t, []combatlog.EventID{3}, log.Links.Get(events[0].ID, "Hit"))

	spec.AnyTarget = true
	spec.AnySource = true
	spec.AdditionalCondition = func(linking, ref *combatlog.Event) bool {
		return ref.Target != linking.Target
	}
	log, events, _ = apply(t, raw, spec)
	assert.Equal(t, []combatlog.EventID{1}, log.Links.Get(events[0].ID, "Hit"))
}

func TestActiveExactAndMinimumBuffer(t *testing.T) {
	gain := func(ts int64, n int) combatlog.Event {
		return combatlog.Event{Timestamp: ts, Type: combatlog.ResourceChange, ResourceChange: n,
			Source: combatlog.Actor{ID: player}, Target: combatlog.Actor{ID: player}}
	}

	spec := Spec{
		LinkingEventType:    combatlog.Types(combatlog.Cast),
		ReferencedEventType: combatlog.Types(combatlog.ResourceChange),
		Relation:            "Gain",
		ForwardBufferMs:     100,
		MinimumBufferMs:     5,
		AnyTarget:           true,
		RequiresExact:       true,
		Expected:            combatlog.Fixed(5),
	}

	raw := []combatlog.Event{cast(0, 7), gain(0, 5), gain(10, 4), gain(20, 5)}

	log, events, _ := apply(t, raw, spec)
	assert.Equal(t, []combatlog.EventID{3}, log.Links.Get(events[0].ID, "Gain"))

	spec.IsActive = func(c combatlog.Combatant) bool { return c.HasTalent(1) }
	log, events, stats := apply(t, raw, spec)
	assert.False(t, log.HasRelated(events[0], "Gain"))
	assert.Equal(t, 0, stats.Total())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"no relation", Spec{LinkingEventType: combatlog.Types(combatlog.Cast), ReferencedEventType: combatlog.Types(combatlog.Damage)}},
		{"no linking type", Spec{Relation: "x", ReferencedEventType: combatlog.Types(combatlog.Damage)}},
		{"no referenced type", Spec{Relation: "x", LinkingEventType: combatlog.Types(combatlog.Cast)}},
		{"negative buffer", Spec{Relation: "x", LinkingEventType: combatlog.Types(combatlog.Cast), ReferencedEventType: combatlog.Types(combatlog.Damage), ForwardBufferMs: -1}},
		{"exact without value", Spec{Relation: "x", LinkingEventType: combatlog.Types(combatlog.Cast), ReferencedEventType: combatlog.Types(combatlog.Damage), RequiresExact: true}},
		{"bad direction", Spec{Relation: "x", LinkingEventType: combatlog.Types(combatlog.Cast), ReferencedEventType: combatlog.Types(combatlog.Damage), SearchDirection: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, events := combatlog.NewLog(nil, nil, player)
			_, err := NewEngine(nil).Apply(log, events, []Spec{tt.spec})

			var specErr *SpecError
			assert.ErrorAs(t, err, &specErr)
		})
	}
}

func TestParseNames(t *testing.T) {
	d, ok := ParseDirection("backwards_first")
	assert.True(t, ok)
	assert.Equal(t, BackwardsFirst, d)

	_, ok = ParseDirection("sideways")
	assert.False(t, ok)

	m, ok := ParseMatchMode("")
	assert.True(t, ok)
	assert.Equal(t, MatchAll, m)
	assert.Equal(t, "last", MatchLast.String())
}

// Every link stays inside its window and can be walked back through the
// reverse relation.
func TestLinkInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	raw := make([]combatlog.Event, 0, 400)
	ts := int64(0)
	for i := 0; i < 400; i++ {
		ts += int64(rng.Intn(40))
		if rng.Intn(4) == 0 {
			raw = append(raw, cast(ts, 7))
		} else {
			raw = append(raw, hit(ts, 7))
		}
	}

	for _, dir := range []SearchDirection{Both, ForwardsOnly, BackwardsOnly, ForwardsFirst, BackwardsFirst} {
		spec := Spec{
			LinkingEventType:    combatlog.Types(combatlog.Cast),
			ReferencedEventType: combatlog.Types(combatlog.Damage),
			Relation:            "Hit",
			ReverseRelation:     "HitBy",
			ForwardBufferMs:     60,
			BackwardBufferMs:    25,
			SearchDirection:     dir,
		}

		log, events, _ := apply(t, raw, spec)
		for _, ev := range events {
			for _, ref := range log.Related(ev, "Hit") {
				dt := ref.Timestamp - ev.Timestamp
				assert.True(t, dt <= spec.ForwardBufferMs && -dt <= spec.BackwardBufferMs, "%s: %v -> %v", dir, ev, ref)
				if dir == ForwardsOnly {
					assert.GreaterOrEqual(t, dt, int64(0))
				}
				if dir == BackwardsOnly {
					assert.LessOrEqual(t, dt, int64(0))
				}
				assert.Contains(t, log.Links.Get(ref.ID, "HitBy"), ev.ID)
			}
		}
	}
}
