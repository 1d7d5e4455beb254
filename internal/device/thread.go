package device

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/born-ml/ndexec/internal/launch"
)

// Thread identifies one lane of a launch and gives it access to its block's
// barrier.
type Thread struct {
	Idx      int // Lane index within the block.
	BlockIdx int // Block index within the grid.
	BlockDim int // Lanes per block.
	GridDim  int // Blocks in the grid.

	bar *barrier
}

// Global returns the lane's index across the whole grid.
func (t *Thread) Global() int {
	return t.BlockIdx*t.BlockDim + t.Idx
}

// GridStride returns the total number of lanes in the grid, the step of a
// grid-stride loop.
func (t *Thread) GridStride() int {
	return t.BlockDim * t.GridDim
}

// SyncThreads blocks until every lane of the block has reached it. Writes
// made before the call are visible to all lanes after it.
func (t *Thread) SyncThreads() {
	t.bar.wait()
}

// runBlock executes one block: g.Threads lanes run concurrently, sharing a
// barrier. A panicking lane breaks the barrier so no lane is left waiting,
// and the first panic is returned as an error.
func runBlock(blockIdx int, g launch.Geometry, lane func(t *Thread)) error {
	bar := newBarrier(g.Threads)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i := 0; i < g.Threads; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				bar.breakBarrier()
				if _, ok := r.(barrierBroken); ok {
					return
				}
				once.Do(func() {
					firstErr = errors.Errorf("block %d thread %d panicked: %v", blockIdx, idx, r)
				})
			}()

			lane(&Thread{
				Idx:      idx,
				BlockIdx: blockIdx,
				BlockDim: g.Threads,
				GridDim:  g.Blocks,
				bar:      bar,
			})
		}(i)
	}
	wg.Wait()
	return firstErr
}
