package analysis

import (
	"context"
	"sync"
	"time"

	"logreplay/combatlog"
	"logreplay/link"
	"logreplay/profile"
	"logreplay/resource"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const progressInterval = 200 * time.Millisecond

type Stage string

const (
	StageNormalize Stage = "normalize"
	StageLink      Stage = "link"
	StageAttribute Stage = "attribute"
)

type Progress struct {
	Stage Stage `json:"stage"`
	// Step is the normalizer pass about to run.
	Step  string `json:"step,omitempty"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

type Options struct {
	Context context.Context
	RunID   string

	// Profile may be shared between concurrent runs, Run never mutates it.
	Profile  *profile.Compiled
	Document *combatlog.Document

	// Strict checks ordering after every pass even when the profile does not.
	Strict bool
	// KeepEvents keeps the final stream and its links in the result.
	KeepEvents bool

	Logger  *zap.Logger
	Metrics *Metrics

	Progress func(p Progress)
}

// Run analyzes one player: normalize, link, attribute. A panic raised inside
// the run (typically by a build predicate) is reported and returned as an
// error.
func Run(opt *Options) (r *Result, err error) {
	if opt.Profile == nil || opt.Document == nil {
		return nil, errors.New("analysis: profile and document are required")
	}

	ctx := opt.Context
	if ctx == nil {
		ctx = context.Background()
	}

	runID := opt.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run", runID), zap.String("profile", opt.Profile.Name))

	started := time.Now()

	////////////////////////////////////////////////////////////////////////////////////////////////////

	var w sync.WaitGroup
	progressCtx, progressCancel := context.WithCancel(ctx)
	progress := make(chan Progress)
	defer func() {
		progressCancel()
		w.Wait()
	}()

	if opt.Progress != nil {
		w.Add(1)
		go func() {
			defer w.Done()

			var stage Stage
			nextMessage := time.Now()
			for {
				select {
				case <-progressCtx.Done():
					return

				case p := <-progress:
					if p.Stage == stage && time.Now().Before(nextMessage) {
						continue
					}

					stage = p.Stage
					opt.Progress(p)
					nextMessage = time.Now().Add(progressInterval)
				}
			}
		}()
	}

	report := func(p Progress) {
		if opt.Progress == nil {
			return
		}
		select {
		case progress <- p:
		case <-progressCtx.Done():
		}
	}

	defer func() {
		if v := recover(); v != nil {
			r = nil
			err = errors.Errorf("analysis %s panicked: %v", runID, v)
			sentry.CaptureException(err)
			logger.Error("analysis panicked", zap.Any("panic", v), zap.Stack("stack"))
		}
		if opt.Metrics != nil {
			opt.Metrics.observe(opt.Profile.Name, r, err, time.Since(started))
		}
	}()

	////////////////////////////////////////////////////////////////////////////////////////////////////

	doc := opt.Document
	log, events := combatlog.NewLog(doc.Events, doc.Combatant, doc.Player)
	if i := combatlog.FirstDisorder(events); i >= 0 {
		logger.Debug("input out of order, sorting", zap.Int("index", i))
		combatlog.SortStable(events)
	}

	chain := *opt.Profile.Chain
	chain.Logger = logger
	chain.Strict = chain.Strict || opt.Strict
	chain.OnPass = func(index int, name string) {
		report(Progress{Stage: StageNormalize, Step: name, Index: index, Total: len(chain.Passes)})
	}

	report(Progress{Stage: StageNormalize, Total: len(chain.Passes)})
	events, err = chain.Run(log, events)
	if err != nil {
		return nil, errors.Wrap(err, "normalize")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	report(Progress{Stage: StageLink, Total: len(opt.Profile.Links)})
	stats, err := link.NewEngine(logger).Apply(log, events, opt.Profile.Links)
	if err != nil {
		return nil, errors.Wrap(err, "link")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	report(Progress{Stage: StageAttribute, Total: len(opt.Profile.Tables)})
	attributions, err := resource.NewEngine(logger).Attribute(log, events, opt.Profile.Tables)
	if err != nil {
		return nil, errors.Wrap(err, "attribute")
	}

	r = &Result{
		RunID:        runID,
		Profile:      opt.Profile.Name,
		Player:       doc.Player,
		Started:      started,
		LinkStats:    stats,
		Attributions: attributions,
		Statistic: Statistic{
			EventsIn:   len(doc.Events),
			Skipped:    doc.Skipped,
			EventsOut:  len(events),
			Fabricated: log.Arena.Len() - log.Arena.Parsed(),
			Links:      log.Links.Len(),
		},
	}
	for _, a := range attributions {
		r.Statistic.Unknown += a.Unknown.Events
	}
	if opt.KeepEvents {
		r.Events = events
		r.Links = log.Links.Snapshot()
	}
	r.Elapsed = time.Since(started)

	logger.Info("analysis done",
		zap.Int("events", r.Statistic.EventsOut),
		zap.Int("fabricated", r.Statistic.Fabricated),
		zap.Int("links", r.Statistic.Links),
		zap.Duration("elapsed", r.Elapsed),
	)

	return r, nil
}
