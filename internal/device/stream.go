package device

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/born-ml/ndexec/internal/launch"
)

// ErrStreamClosed is returned when submitting to a closed stream.
var ErrStreamClosed = errors.New("stream is closed")

// FaultInjector, when set on a stream, is consulted before each kernel runs.
// A non-nil error replaces the kernel's execution and is reported by the next
// Synchronize, like an asynchronous device fault.
type FaultInjector func(kernel string) error

// task is one submitted kernel launch.
type task struct {
	name     string
	geometry launch.Geometry
	block    func(blockIdx int) error
}

// Stream executes kernel launches in submission order on a dedicated
// goroutine. Launch returns as soon as the kernel is queued; Synchronize
// waits for everything queued so far and reports the first failure.
type Stream struct {
	id      uuid.UUID
	workers int

	mu     sync.Mutex // Guards closed and sends on queue.
	closed bool
	queue  chan *task
	done   chan struct{}

	pendingMu sync.Mutex
	pendingCv *sync.Cond
	pending   int
	err       error

	inject   atomic.Pointer[FaultInjector]
	launches atomic.Int64
}

func newStream(workers int) *Stream {
	s := &Stream{
		id:      uuid.New(),
		workers: max(workers, 1),
		queue:   make(chan *task, 64),
		done:    make(chan struct{}),
	}
	s.pendingCv = sync.NewCond(&s.pendingMu)
	go s.loop()
	klog.V(1).Infof("device: stream %s started with %d workers", s.id, s.workers)
	return s
}

// ID returns the stream identifier used in logs.
func (s *Stream) ID() uuid.UUID {
	return s.id
}

// Launches returns how many kernels were accepted by the stream.
func (s *Stream) Launches() int64 {
	return s.launches.Load()
}

// Pending returns the number of launches submitted but not yet finished.
func (s *Stream) Pending() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return s.pending
}

// SetFaultInjector installs f (nil removes it).
func (s *Stream) SetFaultInjector(f FaultInjector) {
	if f == nil {
		s.inject.Store(nil)
		return
	}
	s.inject.Store(&f)
}

// Launch queues a kernel over geometry g. The kernel runs once per lane; each
// block gets its own zero-valued shared storage of type S, visible to every
// lane of that block.
func Launch[S any](s *Stream, name string, g launch.Geometry, kernel func(t *Thread, shared *S)) error {
	return s.submit(&task{
		name:     name,
		geometry: g,
		block: func(blockIdx int) error {
			shared := new(S)
			return runBlock(blockIdx, g, func(t *Thread) {
				kernel(t, shared)
			})
		},
	})
}

func (s *Stream) submit(t *task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Wrapf(ErrStreamClosed, "launching %s", t.name)
	}

	s.pendingMu.Lock()
	s.pending++
	s.pendingMu.Unlock()
	s.launches.Add(1)

	klog.V(2).Infof("device: stream %s launch %s%s", s.id, t.name, t.geometry)
	s.queue <- t
	return nil
}

func (s *Stream) loop() {
	defer close(s.done)
	for t := range s.queue {
		err := s.run(t)

		s.pendingMu.Lock()
		if err != nil && s.err == nil {
			s.err = errors.Wrapf(err, "kernel %s", t.name)
		}
		s.pending--
		s.pendingCv.Broadcast()
		s.pendingMu.Unlock()
	}
}

func (s *Stream) run(t *task) error {
	if f := s.inject.Load(); f != nil {
		if err := (*f)(t.name); err != nil {
			return err
		}
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for b := 0; b < t.geometry.Blocks; b++ {
		g.Go(func() error {
			return t.block(b)
		})
	}
	return g.Wait()
}

// Synchronize blocks until every submitted launch has finished and returns
// the first failure since the previous Synchronize, clearing it.
func (s *Stream) Synchronize() error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	for s.pending > 0 {
		s.pendingCv.Wait()
	}
	err := s.err
	s.err = nil
	if err != nil {
		klog.Warningf("device: stream %s: %v", s.id, err)
	}
	return err
}

// Close drains the queue and stops the stream. Later launches fail with
// ErrStreamClosed.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	klog.V(1).Infof("device: stream %s closed after %d launches", s.id, s.Launches())
	return nil
}
