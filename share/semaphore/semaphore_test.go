package semaphore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryAcquire(t *testing.T) {
	s := New(2)
	assert.Equal(t, 2, s.Available())

	assert.True(t, s.TryAcquire())
	s.Acquire()
	assert.False(t, s.TryAcquire())
	assert.Zero(t, s.Available())

	s.Release()
	assert.True(t, s.TryAcquire())
	s.Release()
	s.Release()
	assert.Equal(t, 2, s.Available())
}
