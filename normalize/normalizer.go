package normalize

import (
	"fmt"

	"go.uber.org/zap"

	"logreplay/combatlog"
)

// Normalizer is one pass of the chain. It receives the whole stream and
// returns the whole stream; the input slice must not be modified.
//
// A pass never fails on a single odd event. It skips what it cannot
// understand and keeps going.
type Normalizer interface {
	Name() string
	Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event
}

// Validator is implemented by passes that carry configuration worth checking
// before a run.
type Validator interface {
	Validate() error
}

// LoggedNormalizer is implemented by passes that log through the chain's
// logger. The chain calls NormalizeLogged instead of Normalize for them.
type LoggedNormalizer interface {
	Normalizer
	NormalizeLogged(logger *zap.Logger, log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event
}

// Func turns a plain function into a Normalizer.
func Func(name string, fn func(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event) Normalizer {
	return funcNormalizer{name, fn}
}

type funcNormalizer struct {
	name string
	fn   func(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event
}

func (f funcNormalizer) Name() string { return f.name }

func (f funcNormalizer) Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	return f.fn(log, events)
}

////////////////////////////////////////////////////////////////////////////////////////////////////

// OrderError reports a pass that handed out an unsorted stream.
type OrderError struct {
	Pass      string
	Index     int
	Timestamp int64
	Previous  int64
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("normalizer %q broke ordering at %d: %d after %d", e.Pass, e.Index, e.Timestamp, e.Previous)
}

// Chain runs passes in order, each one seeing the output of the previous.
type Chain struct {
	Passes []Normalizer

	// Strict checks sortedness after every pass.
	Strict bool

	// OnPass, when set, is called before each pass runs.
	OnPass func(index int, name string)

	Logger *zap.Logger
}

func NewChain(passes ...Normalizer) *Chain {
	return &Chain{Passes: passes}
}

func (c *Chain) Append(passes ...Normalizer) {
	c.Passes = append(c.Passes, passes...)
}

func (c *Chain) Names() []string {
	r := make([]string, len(c.Passes))
	for i, p := range c.Passes {
		r[i] = p.Name()
	}
	return r
}

// Validate checks every pass that can be checked.
func (c *Chain) Validate() error {
	for _, p := range c.Passes {
		if v, ok := p.(Validator); ok {
			if err := v.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run validates the chain and reduces events over it.
func (c *Chain) Run(log *combatlog.Log, events []*combatlog.Event) ([]*combatlog.Event, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for i, p := range c.Passes {
		if c.OnPass != nil {
			c.OnPass(i, p.Name())
		}

		before := len(events)
		fabricated := log.Arena.Len()
		links := log.Links.Len()

		if lp, ok := p.(LoggedNormalizer); ok {
			events = lp.NormalizeLogged(logger, log, events)
		} else {
			events = p.Normalize(log, events)
		}

		if c.Strict {
			if i := combatlog.FirstDisorder(events); i >= 0 {
				return nil, &OrderError{
					Pass:      p.Name(),
					Index:     i,
					Timestamp: events[i].Timestamp,
					Previous:  events[i-1].Timestamp,
				}
			}
		}

		inserted := log.Arena.Len() - fabricated
		logger.Debug("normalizer done",
			zap.String("pass", p.Name()),
			zap.Int("events", len(events)),
			zap.Int("inserted", inserted),
			zap.Int("dropped", before+inserted-len(events)),
			zap.Int("links", log.Links.Len()-links),
		)
	}

	return events, nil
}
