package analysispool

import (
	"context"
	"sort"
	"sync"

	"logreplay/analysis"
	"logreplay/cache"
	"logreplay/profile"
	"logreplay/spelldata"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownProfile = errors.New("unknown profile")
)

type Config struct {
	Profiles map[string]*profile.Compiled
	Catalog  *spelldata.Catalog

	// Storage caches results by request hash. Nil disables caching.
	Storage *cache.Storage
	Metrics *analysis.Metrics
	Logger  *zap.Logger

	// Strict forces ordering checks after every normalizer pass.
	Strict bool
}

// Pool serializes analyses: a single worker takes queued requests in order,
// waiting clients are told their position.
type Pool struct {
	cfg    Config
	logger *zap.Logger

	queueLock sync.Mutex
	queue     []*queueData
	queueWake chan struct{}
}

func New(cfg Config) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = spelldata.Empty()
	}

	return &Pool{
		cfg:       cfg,
		logger:    logger,
		queue:     make([]*queueData, 0, 16),
		queueWake: make(chan struct{}, 1),
	}
}

// Profiles lists the loaded profile names.
func (p *Pool) Profiles() []string {
	r := make([]string, 0, len(p.cfg.Profiles))
	for name := range p.cfg.Profiles {
		r = append(r, name)
	}
	sort.Strings(r)
	return r
}

func (p *Pool) Catalog() *spelldata.Catalog {
	return p.cfg.Catalog
}

// Waiting is the number of queued requests.
func (p *Pool) Waiting() int {
	p.queueLock.Lock()
	defer p.queueLock.Unlock()
	return len(p.queue)
}

// Run is the queue worker. It returns when ctx is done.
func (p *Pool) Run(ctx context.Context) {
	var q *queueData

	for {
		q = nil

		p.queueLock.Lock()
		if len(p.queue) > 0 {
			q = p.queue[0]

			copy(p.queue, p.queue[1:])
			p.queue[len(p.queue)-1] = nil
			p.queue = p.queue[:len(p.queue)-1]

			for i, w := range p.queue {
				go w.Reorder(i + 1)
			}
		}
		p.queueLock.Unlock()

		if q == nil {
			select {
			case <-p.queueWake:
			case <-ctx.Done():
				return
			}
			continue
		}

		if err := q.ctx.Err(); err != nil {
			q.chanResp <- response{err: errors.WithStack(err)}
			continue
		}

		p.logger.Info("analysis start", zap.String("run", q.opt.RunID), zap.String("profile", q.req.Profile))
		q.Start()
		r, err := analysis.Run(&q.opt)
		if err != nil {
			p.logger.Warn("analysis failed", zap.String("run", q.opt.RunID), zap.Error(err))
		}
		q.chanResp <- response{result: r, err: err}
	}
}

func (p *Pool) enqueue(q *queueData) {
	p.queueLock.Lock()
	if len(p.queue) == 0 {
		select {
		case p.queueWake <- struct{}{}:
		default:
		}
	}
	p.queue = append(p.queue, q)
	q.Reorder(len(p.queue))
	p.queueLock.Unlock()
}

// prepare validates the request and builds the run options.
func (p *Pool) prepare(q *queueData) error {
	if !q.req.CheckOptionValidation() {
		return ErrInvalidRequest
	}

	compiled, ok := p.cfg.Profiles[q.req.Profile]
	if !ok {
		return errors.Wrap(ErrUnknownProfile, q.req.Profile)
	}

	doc, err := q.req.Document()
	if err != nil {
		return errors.Wrap(ErrInvalidRequest, err.Error())
	}

	q.opt = analysis.Options{
		Context:  q.ctx,
		RunID:    uuid.NewString(),
		Profile:  compiled,
		Document: doc,
		Strict:   p.cfg.Strict,
		Logger:   p.logger,
		Metrics:  p.cfg.Metrics,
		Progress: q.Progress,
	}
	return nil
}

// analyze answers q from the cache or the queue. It blocks until the result is
// ready or q's context ends.
func (p *Pool) analyze(q *queueData) (*analysis.Result, bool, error) {
	if err := p.prepare(q); err != nil {
		return nil, false, err
	}

	h := q.req.Hash()

	var r *analysis.Result
	if p.cfg.Storage != nil && p.cfg.Storage.Load(h, &r) && r != nil {
		return r, true, nil
	}

	p.enqueue(q)

	var resp response
	select {
	case resp = <-q.chanResp:
	case <-q.ctx.Done():
		return nil, false, errors.WithStack(q.ctx.Err())
	}
	if resp.err != nil {
		return nil, false, resp.err
	}

	if p.cfg.Storage != nil {
		p.cfg.Storage.Save(h, resp.result)
	}
	return resp.result, false, nil
}

// Analyze runs a request without a websocket client.
func (p *Pool) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, bool, error) {
	ctx, ctxCancel := context.WithCancel(ctx)
	defer ctxCancel()

	q := newQueueData(ctx, ctxCancel, nil, p.logger)
	q.req = req

	return p.analyze(q)
}
