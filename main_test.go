package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"logreplay/analysis"
	"logreplay/config"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.LogLevel = "error"
	return cfg
}

func TestValidateShipped(t *testing.T) {
	cfg := testConfig()

	var out bytes.Buffer
	require.NoError(t, validate(&cfg, &out))

	assert.Contains(t, out.String(), "ok      enhancement-shaman")
	assert.Contains(t, out.String(), "ok      devastation-evoker")
	assert.NotContains(t, out.String(), "invalid")
}

func TestValidateReportsBrokenProfiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\nnormalizers:\n  - kind: teleport\n"), 0600))

	cfg := testConfig()
	cfg.ProfileDir = dir

	var out bytes.Buffer
	err := validate(&cfg, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "invalid ")
	assert.Contains(t, out.String(), "broken.yaml")
}

func TestAnalyzeText(t *testing.T) {
	cfg := testConfig()

	var out bytes.Buffer
	err := analyze(context.Background(), &cfg, &analyzeFlags{
		profile: "enhancement-shaman",
		events:  []string{"testdata/enhancement.json"},
	}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "profile enhancement-shaman")
	assert.Contains(t, out.String(), "[maelstrom]")
	assert.Contains(t, out.String(), "UNKNOWN")
}

func TestAnalyzeJSON(t *testing.T) {
	cfg := testConfig()

	var out bytes.Buffer
	err := analyze(context.Background(), &cfg, &analyzeFlags{
		profile: "enhancement-shaman",
		events:  []string{"testdata/enhancement.json", "testdata/enhancement.json"},
		json:    true,
		detail:  true,
	}, &out)
	require.NoError(t, err)

	var results []*analysis.Result
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].RunID, results[1].RunID)
	assert.Equal(t, results[0].Statistic, results[1].Statistic)
	assert.NotEmpty(t, results[0].Events)
	assert.Len(t, results[0].Links, results[0].Statistic.Links)
	assert.Equal(t, 8, results[0].Statistic.EventsIn)
}

func TestAnalyzeUnknownProfile(t *testing.T) {
	cfg := testConfig()

	err := analyze(context.Background(), &cfg, &analyzeFlags{
		profile: "nope",
		events:  []string{"testdata/enhancement.json"},
	}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown profile")
}
