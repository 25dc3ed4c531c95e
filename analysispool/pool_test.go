package analysispool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"logreplay/analysis"
	"logreplay/cache"
	"logreplay/profile"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testProfile = `
name: sample
normalizers:
  - kind: sort
resources:
  - name: maelstrom
    resource_ability: 344179
    pool: [applybuffstack]
    descriptors:
      - name: stormstrike
        spells: [17364]
        role: builder
        from: [cast]
        forward_ms: 20
`

const testEvents = `{"player": 1, "events": [
	{"timestamp": 0, "type": "cast", "sourceID": 1, "targetID": 50, "abilityGameID": 17364},
	{"timestamp": 10, "type": "applybuffstack", "sourceID": 1, "targetID": 1, "abilityGameID": 344179},
	{"timestamp": 90, "type": "applybuffstack", "sourceID": 1, "targetID": 1, "abilityGameID": 344179}
]}`

func newPool(t *testing.T) *Pool {
	ps, err := profile.Parse(strings.NewReader(testProfile))
	require.NoError(t, err)
	c, err := ps[0].Compile()
	require.NoError(t, err)

	s, err := cache.NewStorage(t.TempDir(), time.Hour, 8, nil)
	require.NoError(t, err)

	p := New(Config{
		Profiles: map[string]*profile.Compiled{c.Name: c},
		Storage:  s,
		Logger:   zaptest.NewLogger(t),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.Run(ctx)

	return p
}

func TestAnalyzeCaches(t *testing.T) {
	p := newPool(t)
	assert.Equal(t, []string{"sample"}, p.Profiles())

	req := analysis.Request{Profile: "sample", Events: []byte(testEvents)}

	r, cached, err := p.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, cached)

	row, ok := r.Attribution("maelstrom").Row("stormstrike")
	require.True(t, ok)
	assert.Equal(t, 1, row.Generated)
	assert.Equal(t, 1, r.Statistic.Unknown)

	again, cached, err := p.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, r.RunID, again.RunID)
	assert.Equal(t, r.Statistic, again.Statistic)
}

func TestAnalyzeRejects(t *testing.T) {
	p := newPool(t)

	_, _, err := p.Analyze(context.Background(), analysis.Request{Profile: "nope", Events: []byte(testEvents)})
	assert.ErrorIs(t, err, ErrUnknownProfile)
	assert.Equal(t, err, ClientError(err))

	_, _, err = p.Analyze(context.Background(), analysis.Request{Profile: "sample"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, _, err = p.Analyze(context.Background(), analysis.Request{Profile: "sample", Events: []byte("{oops")})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func TestWebsocketSession(t *testing.T) {
	p := newPool(t)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		p.Do(r.Context(), ws)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	var m message
	require.NoError(t, ws.ReadJSON(&m))
	assert.Equal(t, "ready", m.Event)

	require.NoError(t, ws.WriteJSON(analysis.Request{Profile: "sample", Events: []byte(testEvents)}))

	var events []string
	var done completeData
	for {
		m = message{}
		require.NoError(t, ws.ReadJSON(&m))
		events = append(events, m.Event)
		if m.Event == "complete" {
			require.NoError(t, jsoniter.Unmarshal(m.Data, &done))
			break
		}
		require.NotEqual(t, "error", m.Event, string(m.Data))
	}

	assert.Equal(t, []string{"waiting", "start"}, events[:2])
	assert.Contains(t, events, "progress")
	assert.False(t, done.Cached)
	assert.NotEmpty(t, done.RunID)
	assert.Contains(t, done.Summary, "[maelstrom]")
}

func TestWebsocketBadRequest(t *testing.T) {
	p := newPool(t)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		p.Do(r.Context(), ws)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	var m message
	require.NoError(t, ws.ReadJSON(&m))
	require.NoError(t, ws.WriteJSON(analysis.Request{Profile: "nope", Events: []byte(testEvents)}))

	require.NoError(t, ws.ReadJSON(&m))
	assert.Equal(t, "error", m.Event)
	assert.Contains(t, string(m.Data), "unknown profile")
}
