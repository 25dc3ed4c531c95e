package normalize

import (
	"go.uber.org/zap"

	"logreplay/combatlog"
	"logreplay/link"
)

// Linker applies link specs as a chain step, so later passes can rely on the
// links. Inside a chain it logs through the chain's logger.
type Linker struct {
	Label string
	Specs []link.Spec

	// Logger is used when the step runs outside a chain.
	Logger *zap.Logger
}

func (l *Linker) Name() string {
	if l.Label != "" {
		return l.Label
	}
	return "link"
}

func (l *Linker) Validate() error {
	for i := range l.Specs {
		if err := l.Specs[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Linker) Normalize(log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	return l.NormalizeLogged(l.Logger, log, events)
}

// NormalizeLogged applies the specs. A chain validates them before running,
// so an error here means the step ran outside a chain with a bad spec; the
// stream is passed on unlinked.
func (l *Linker) NormalizeLogged(logger *zap.Logger, log *combatlog.Log, events []*combatlog.Event) []*combatlog.Event {
	if logger == nil {
		logger = zap.NewNop()
	}

	stats, err := link.NewEngine(logger).Apply(log, events, l.Specs)
	if err != nil {
		logger.Error("link step failed", zap.String("pass", l.Name()), zap.Error(err))
		return events
	}

	logger.Debug("link step done",
		zap.String("pass", l.Name()),
		zap.Int("links", stats.Total()),
	)
	return events
}
