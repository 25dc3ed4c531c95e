package analysis

import (
	"context"

	"logreplay/share/parallel"

	"github.com/pkg/errors"
)

// RunMany analyzes independent players on at most workers goroutines. Every
// run owns its own log; only the options' shared Profile and Metrics are
// touched concurrently. Results keep the order of opts. The first failure
// cancels the runs that have not started yet.
func RunMany(ctx context.Context, workers int, opts []*Options) ([]*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	p := parallel.New(workers)
	p.Reset(ctx)
	defer p.Stop()

	results := make([]*Result, len(opts))
	for i, opt := range opts {
		i, opt := i, *opt
		p.Add(func(ctx context.Context) error {
			opt.Context = ctx

			r, err := Run(&opt)
			if err != nil {
				return errors.Wrapf(err, "run %d", i)
			}
			results[i] = r
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
