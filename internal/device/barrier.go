package device

import "sync"

// barrierBroken is the panic value raised in lanes waiting on a barrier that
// another lane abandoned by panicking.
type barrierBroken struct{}

// barrier is a reusable rendezvous point for the lanes of one block.
type barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	waiting    int
	generation uint64
	broken     bool
}

func newBarrier(parties int) *barrier {
	b := &barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// wait blocks until all parties have called wait for the current generation.
// It panics with barrierBroken if the barrier is broken while waiting.
func (b *barrier) wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		panic(barrierBroken{})
	}

	gen := b.generation
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return
	}

	for gen == b.generation && !b.broken {
		b.cond.Wait()
	}
	if gen == b.generation {
		panic(barrierBroken{})
	}
}

// breakBarrier releases every current and future waiter with a panic.
func (b *barrier) breakBarrier() {
	b.mu.Lock()
	b.broken = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
