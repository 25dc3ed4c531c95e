package analysispool

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"logreplay/analysis"
	"logreplay/normalize"
	"logreplay/share"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const pingInterval = 5 * time.Second

var websockEmptyClosure = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

// Do serves one websocket client: ready, read the request, then waiting /
// start / progress messages until complete or error.
func (p *Pool) Do(ctx context.Context, ws *websocket.Conn) {
	ctx, ctxCancel := context.WithCancel(ctx)
	defer ctxCancel()

	q := newQueueData(ctx, ctxCancel, ws, p.logger)
	q.Ready()

	err := readRequest(ws, &q.req)
	if err != nil {
		p.logger.Debug("read request", zap.Error(err))
		q.Error(ErrInvalidRequest)
		return
	}
	go func() {
		for {
			_, r, err := ws.NextReader()
			if err != nil {
				ctxCancel()
				return
			}

			_, err = io.Copy(io.Discard, r)
			if err != nil && err != io.EOF {
				ctxCancel()
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				q.wsLock.Lock()
				err := ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(pingInterval))
				q.wsLock.Unlock()
				if err != nil {
					if err != websocket.ErrCloseSent {
						p.logger.Debug("ping failed", zap.Error(err))
					}
					ctxCancel()
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	////////////////////////////////////////////////////////////////////////////////////////////////////

	r, cached, err := p.analyze(q)
	switch {
	case err == nil:
		summary, rerr := analysis.RenderString(r, p.cfg.Catalog)
		if rerr != nil {
			sentry.CaptureException(rerr)
			p.logger.Error("render summary", zap.Error(rerr))
		}
		q.Succ(r, cached, summary)

	case share.IsContextClosedError(err):
		p.logger.Debug("client left", zap.String("run", q.opt.RunID))
		return

	default:
		q.Error(ClientError(err))
	}

	q.wsLock.Lock()
	err = ws.WriteMessage(websocket.CloseMessage, websockEmptyClosure)
	q.wsLock.Unlock()
	if err != nil && err != websocket.ErrCloseSent {
		p.logger.Debug("close websocket", zap.Error(err))
	}
}

// ClientError is the error shown to clients: request and configuration
// problems keep their message, everything else is reported and hidden.
func ClientError(err error) error {
	var oe *normalize.OrderError
	switch {
	case stderrors.Is(err, ErrInvalidRequest), stderrors.Is(err, ErrUnknownProfile):
		return err
	case stderrors.As(err, &oe):
		return err
	}

	sentry.CaptureException(err)
	return errors.New("analysis failed")
}

func readRequest(ws *websocket.Conn, req *analysis.Request) error {
	_, r, err := ws.NextReader()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r).Decode(req))
}
