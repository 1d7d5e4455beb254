// Package memory tracks host and device buffer allocations for leak detection.
//
// Tracking is off by default. When enabled (Tracker.SetEnabled or the
// NDEXEC_DETECT_LEAKS environment variable) every allocation is recorded with
// the call stack that made it, and Summarize reports whatever was never
// released.
package memory

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Kind tells where an allocation lives.
type Kind int

// Allocation kinds.
const (
	Host Kind = iota
	Device
)

// String returns "HOST" or "DEVICE".
func (k Kind) String() string {
	if k == Device {
		return "DEVICE"
	}
	return "HOST"
}

// Errors reported by the tracker.
var (
	ErrDoubleFree = errors.New("double free")
	ErrLeaks      = errors.New("non-released allocations found")
)

// Allocation is one tracked buffer.
type Allocation struct {
	ID    uuid.UUID
	Kind  Kind
	Bytes int
	Stack string
}

// Tracker records live and released allocations. It is safe for concurrent use.
type Tracker struct {
	enabled     atomic.Bool
	mu          sync.Mutex
	allocations map[uuid.UUID]Allocation
	released    map[uuid.UUID]Allocation
}

// NewTracker returns a disabled tracker.
func NewTracker() *Tracker {
	return &Tracker{
		allocations: make(map[uuid.UUID]Allocation),
		released:    make(map[uuid.UUID]Allocation),
	}
}

var defaultTracker = func() *Tracker {
	t := NewTracker()
	if v, err := strconv.ParseBool(os.Getenv("NDEXEC_DETECT_LEAKS")); err == nil {
		t.SetEnabled(v)
	}
	return t
}()

// Default returns the process-wide tracker.
func Default() *Tracker {
	return defaultTracker
}

// SetEnabled toggles leak detection. Allocations made while disabled are
// never reported.
func (t *Tracker) SetEnabled(on bool) {
	t.enabled.Store(on)
}

// Enabled reports whether leak detection is on.
func (t *Tracker) Enabled() bool {
	return t.enabled.Load()
}

// CountIn records a new allocation and returns its ID.
// It returns uuid.Nil when tracking is disabled.
func (t *Tracker) CountIn(kind Kind, bytes int) uuid.UUID {
	if !t.Enabled() {
		return uuid.Nil
	}
	id := uuid.New()
	alloc := Allocation{ID: id, Kind: kind, Bytes: bytes, Stack: callers(3)}

	t.mu.Lock()
	t.allocations[id] = alloc
	t.mu.Unlock()
	return id
}

// CountOut records the release of an allocation made by CountIn.
// Releasing the same ID twice returns ErrDoubleFree.
func (t *Tracker) CountOut(id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.released[id]; ok {
		return errors.Wrapf(ErrDoubleFree, "allocation %s", id)
	}
	if alloc, ok := t.allocations[id]; ok {
		t.released[id] = alloc
		delete(t.allocations, id)
	}
	return nil
}

// Live returns a snapshot of the allocations not yet released.
func (t *Tracker) Live() []Allocation {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Allocation, 0, len(t.allocations))
	for _, a := range t.allocations {
		out = append(out, a)
	}
	return out
}

// Summarize logs every live allocation and returns ErrLeaks if there are any.
func (t *Tracker) Summarize() error {
	live := t.Live()
	if len(live) == 0 {
		return nil
	}

	klog.Warningf("%d leaked allocations", len(live))
	total := 0
	for _, a := range live {
		total += a.Bytes
		klog.Warningf("leak of %d [%s] bytes\n%s", a.Bytes, a.Kind, a.Stack)
	}
	return errors.Wrapf(ErrLeaks, "%d allocations, %d bytes", len(live), total)
}

// Reset forgets all recorded allocations.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.allocations)
	clear(t.released)
}

// callers renders the stack of the allocating goroutine, skipping the
// tracker's own frames.
func callers(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		sb.WriteString(frame.Function)
		sb.WriteString("\n\t")
		sb.WriteString(frame.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(frame.Line))
		sb.WriteString("\n")
		if !more {
			break
		}
	}
	return sb.String()
}
