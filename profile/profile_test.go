package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"logreplay/combatlog"
	"logreplay/link"
	"logreplay/normalize"
	"logreplay/resource"
)

const sample = `
name: sample
strict: true
normalizers:
  - kind: sort
  - kind: fabricate_cast
    casts:
      - buff: 10
        ability: 11
        buffer_ms: 100
links:
  - relation: Hit
    reverse: HitBy
    from: {types: [cast], ids: [11]}
    to: {types: [damage]}
    forward_ms: 500
    direction: forwards_only
    match: first
    maximum_links: {base: 1, talent: 7, per_rank: 1}
    any_target: true
    condition: different_target
    enabled: {not_talent: 8}
resources:
  - name: mana
    resource_type: 0
    resource_ability: 99
    pool: [applybuffstack]
    descriptors:
      - name: proc
        spells: [11]
        role: builder
        from: [cast]
        forward_ms: 20
        maximum: 3
        override: 12
`

func TestParseAndCompile(t *testing.T) {
	ps, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, ps, 1)

	p := ps[0]
	require.NoError(t, p.Validate())
	assert.Equal(t, &Amount{Base: 1, Talent: 7, PerRank: 1}, p.Links[0].MaximumLinks)
	assert.Equal(t, &Amount{Base: 3}, p.Resources[0].Descriptors[0].Maximum)

	c, err := p.Compile()
	require.NoError(t, err)

	assert.Equal(t, []string{"sort", "fabricate_cast"}, c.Chain.Names())
	assert.True(t, c.Chain.Strict)

	require.Len(t, c.Links, 1)
	spec := c.Links[0]
	assert.Equal(t, link.ForwardsOnly, spec.SearchDirection)
	assert.Equal(t, link.MatchFirst, spec.MatchMode)
	assert.NotNil(t, spec.AdditionalCondition)

	build := combatlog.Build{Talents: map[int]int{7: 2}}
	n, ok := spec.MaximumLinks.Eval(build)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.True(t, spec.IsActive.Eval(build))
	assert.False(t, spec.IsActive.Eval(combatlog.Build{Talents: map[int]int{8: 1}}))

	require.Len(t, c.Tables, 1)
	row := c.Tables[0].Descriptors[0]
	assert.Equal(t, resource.Builder, row.Role)
	assert.Equal(t, 12, row.ReportedAbility())
	require.NoError(t, c.Tables[0].Validate())
}

func TestCompiledProfileRuns(t *testing.T) {
	ps, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	c, err := ps[0].Compile()
	require.NoError(t, err)

	player := combatlog.Actor{ID: 1}
	log, events := combatlog.NewLog([]combatlog.Event{
		{Timestamp: 200, Type: combatlog.Damage, Ability: 11, Source: player, Target: combatlog.Actor{ID: 9}},
		{Timestamp: 100, Type: combatlog.ApplyBuff, Ability: 10, Source: player, Target: player},
		{Timestamp: 110, Type: combatlog.ApplyBuffStack, Ability: 99, Source: player, Target: player},
	}, nil, 1)

	c.Chain.Logger = zaptest.NewLogger(t)
	out, err := c.Chain.Run(log, events)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.True(t, out[0].Fabricated)

	stats, err := link.NewEngine(nil).Apply(log, out, c.Links)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["Hit"])

	as, err := resource.NewEngine(nil).Attribute(log, out, c.Tables)
	require.NoError(t, err)
	claim, ok := as[0].ClaimOf(out[2].ID)
	require.True(t, ok)
	assert.Equal(t, "proc", claim.Descriptor)
	assert.Equal(t, 12, claim.Ability)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"no name", `normalizers: [{kind: sort}]`, "name"},
		{"unknown kind", "name: x\nnormalizers: [{kind: teleport}]", "normalizers[0].kind"},
		{"channel without buff", "name: x\nnormalizers: [{kind: channel}]", "normalizers[0].buff"},
		{"bad type", "name: x\nlinks: [{relation: a, from: {types: [cast]}, to: {types: [explode]}}]", "links[0].to.types"},
		{"bad direction", "name: x\nlinks: [{relation: a, from: {types: [cast]}, to: {types: [damage]}, direction: up}]", "links[0].direction"},
		{"bad condition", "name: x\nlinks: [{relation: a, from: {types: [cast]}, to: {types: [damage]}, condition: lucky}]", "links[0].condition"},
		{"bad role", "name: x\nresources: [{name: m, pool: [resourcechange], descriptors: [{name: a, spells: [1], role: thief}]}]", "resources[0].descriptors[0].role"},
		{"reserved row", "name: x\nresources: [{name: m, pool: [resourcechange], descriptors: [{name: UNKNOWN, spells: [1], role: builder, from: [cast]}]}]", "resources[0].descriptors[0].name"},
		{"periodic without frequency", "name: x\nresources: [{name: m, pool: [resourcechange], descriptors: [{name: a, spells: [1], role: periodic}]}]", "resources[0].descriptors[0].frequency_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Len(t, ps, 1)

			err = ps[0].Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			_, err = ps[0].Compile()
			assert.Error(t, err)
		})
	}
}

const everyKind = `
name: every
normalizers:
  - kind: sort
  - kind: dedup
  - kind: prepull_buffs
  - kind: fabricate_cast
    casts: [{buff: 10, ability: 11}]
  - kind: channel
    buff: 20
  - kind: chain
    cast: 30
    effect: 31
  - kind: reorder
    before: {types: [cast]}
    after: {types: [damage]}
  - kind: link
    links: [{relation: Hit, from: {types: [cast]}, to: {types: [damage]}}]
`

func TestCompileEveryKind(t *testing.T) {
	ps, err := Parse(strings.NewReader(everyKind))
	require.NoError(t, err)
	require.Len(t, ps, 1)

	var c *Compiled
	require.NotPanics(t, func() { c, err = ps[0].Compile() })
	require.NoError(t, err)

	kinds := make([]string, 0, len(ps[0].Normalizers))
	for _, n := range ps[0].Normalizers {
		kinds = append(kinds, n.Kind)
	}
	assert.Equal(t, kinds, c.Chain.Names())

	assert.Panics(t, func() { (&NormalizerConfig{Kind: "teleport"}).compile() })
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("name: x\nnormalisers: []\n"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("01-base.yaml", "name: a\ndescription: first\n---\nname: b\n")
	write("02-override.yml", "name: a\ndescription: second\n")
	write("03-broken.yaml", "name: [\n")
	write("04-invalid.yaml", "name: c\nnormalizers: [{kind: nope}]\n")
	write("notes.txt", "name: d\n")

	s, err := LoadDir(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, s.Names())
	a, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "second", a.Description)
	assert.Equal(t, filepath.Join(dir, "02-override.yml"), a.SourceFile)

	assert.Len(t, s.Invalid, 2)
	assert.Contains(t, s.Invalid, filepath.Join(dir, "03-broken.yaml"))
	assert.Contains(t, s.Invalid, filepath.Join(dir, "04-invalid.yaml")+"#c")

	_, err = LoadDir(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}

func TestShippedProfiles(t *testing.T) {
	s, err := LoadDir(filepath.Join("..", "profiles"), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Empty(t, s.Invalid)
	assert.NotZero(t, s.Len())

	for _, name := range s.Names() {
		p, _ := s.Get(name)
		c, err := p.Compile()
		require.NoError(t, err, name)
		require.NoError(t, c.Chain.Validate(), name)
		for i := range c.Tables {
			require.NoError(t, c.Tables[i].Validate(), name)
		}
	}
}

func TestCompileIsFresh(t *testing.T) {
	ps, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	a, err := ps[0].Compile()
	require.NoError(t, err)
	b, err := ps[0].Compile()
	require.NoError(t, err)

	a.Chain.Append(normalize.Sort)
	assert.NotEqual(t, len(a.Chain.Passes), len(b.Chain.Passes))
}
