package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsEverything(t *testing.T) {
	p := New(3)

	var n int32
	for i := 0; i < 50; i++ {
		p.Add(func(ctx context.Context) error {
			atomic.AddInt32(&n, 1)
			return nil
		})
	}

	assert.NoError(t, p.Wait())
	assert.Equal(t, int32(50), atomic.LoadInt32(&n))
}

func TestPoolFirstErrorCancels(t *testing.T) {
	p := New(1)

	boom := errors.New("boom")
	var after int32

	p.Add(func(ctx context.Context) error { return boom })
	for i := 0; i < 5; i++ {
		p.Add(func(ctx context.Context) error {
			atomic.AddInt32(&after, 1)
			return errors.New("later")
		})
	}

	assert.Same(t, boom, p.Wait())
	assert.Zero(t, atomic.LoadInt32(&after))
}

func TestPoolReset(t *testing.T) {
	p := New(2)

	p.Add(func(ctx context.Context) error { return errors.New("first") })
	assert.Error(t, p.Wait())

	p.Reset(context.Background())
	p.Add(func(ctx context.Context) error { return ctx.Err() })
	assert.NoError(t, p.Wait())
}

func TestPoolParentCanceled(t *testing.T) {
	p := New(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Reset(ctx)

	p.Add(func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, p.Wait(), context.Canceled)
}
