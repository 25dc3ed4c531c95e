package analysispool

import (
	"bytes"
	"context"
	"sync"
	"time"

	"logreplay/analysis"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

var (
	eventRespBufferPool = sync.Pool{
		New: func() interface{} {
			b := new(bytes.Buffer)
			b.Grow(64 * 1024)

			return b
		},
	}

	eventReady = []byte(`{"event":"ready"}`)
	eventStart = []byte(`{"event":"start"}`)
)

type response struct {
	result *analysis.Result
	err    error
}

type queueData struct {
	req analysis.Request
	opt analysis.Options

	ctx       context.Context
	ctxCancel func()

	// ws is nil for requests that do not come from a websocket.
	ws     *websocket.Conn
	wsLock sync.Mutex
	logger *zap.Logger

	chanResp chan response
}

func newQueueData(ctx context.Context, ctxCancel func(), ws *websocket.Conn, logger *zap.Logger) *queueData {
	return &queueData{
		ctx:       ctx,
		ctxCancel: ctxCancel,
		ws:        ws,
		logger:    logger,
		chanResp:  make(chan response, 1),
	}
}

func (q *queueData) write(b []byte) {
	if q.ws == nil {
		return
	}

	q.wsLock.Lock()
	defer q.wsLock.Unlock()

	q.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := q.ws.WriteMessage(websocket.TextMessage, b)
	if err != nil && err != websocket.ErrCloseSent {
		q.logger.Debug("websocket write failed", zap.Error(err))
		q.ctxCancel()
	}
}

func (q *queueData) send(event string, data interface{}) {
	if q.ws == nil {
		return
	}

	resp := struct {
		Event string      `json:"event"`
		Data  interface{} `json:"data,omitempty"`
	}{
		Event: event,
		Data:  data,
	}

	buf := eventRespBufferPool.Get().(*bytes.Buffer)
	defer eventRespBufferPool.Put(buf)
	buf.Reset()

	err := jsoniter.NewEncoder(buf).Encode(&resp)
	if err != nil {
		sentry.CaptureException(err)
		q.logger.Error("encode message", zap.String("event", event), zap.Error(errors.WithStack(err)))
		return
	}

	q.write(bytes.TrimRight(buf.Bytes(), "\n"))
}

func (q *queueData) Ready() {
	q.write(eventReady)
}

func (q *queueData) Reorder(order int) {
	q.send("waiting", order)
}

func (q *queueData) Start() {
	q.write(eventStart)
}

func (q *queueData) Progress(p analysis.Progress) {
	q.send("progress", p)
}

func (q *queueData) Error(err error) {
	q.send("error", err.Error())
}

type completeData struct {
	RunID   string           `json:"run_id"`
	Cached  bool             `json:"cached"`
	Summary string           `json:"summary"`
	Result  *analysis.Result `json:"result"`
}

func (q *queueData) Succ(r *analysis.Result, cached bool, summary string) {
	q.send("complete", completeData{
		RunID:   r.RunID,
		Cached:  cached,
		Summary: summary,
		Result:  r,
	})
}
