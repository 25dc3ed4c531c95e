package semaphore

// Semaphore bounds how many holders run at once.
type Semaphore struct {
	ch chan struct{}
}

func New(max int) *Semaphore {
	if max < 1 {
		max = 1
	}

	sema := &Semaphore{
		ch: make(chan struct{}, max),
	}
	for i := 0; i < max; i++ {
		sema.ch <- struct{}{}
	}

	return sema
}

func (sema *Semaphore) Acquire() {
	<-sema.ch
}

// TryAcquire takes a slot only when one is free.
func (sema *Semaphore) TryAcquire() bool {
	select {
	case <-sema.ch:
		return true
	default:
		return false
	}
}

func (sema *Semaphore) Release() {
	sema.ch <- struct{}{}
}

// Available is the number of free slots.
func (sema *Semaphore) Available() int {
	return len(sema.ch)
}
