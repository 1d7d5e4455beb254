// Package parallel provides host-side parallel loops for ndexec.
//
// The accelerator emulation lives in package device; this package is only
// used for bulk host work such as mirroring buffers between host and device.
package parallel

import (
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
// NDEXEC_HOST_WORKERS overrides the worker count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	if v, err := strconv.Atoi(os.Getenv("NDEXEC_HOST_WORKERS")); err == nil && v > 0 {
		n = v
	}
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64 * 1024, // Bytes; smaller copies are not worth a goroutine.
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}

// ForRange splits [0, n) into contiguous chunks and calls f(start, end) for
// each, concurrently when the configuration allows it.
func ForRange(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		f(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}

// Copy copies src into dst using ForRange. It returns the number of bytes
// copied, like the builtin copy.
func Copy(dst, src []byte, cfg Config) int {
	n := min(len(dst), len(src))
	ForRange(n, func(s, e int) {
		copy(dst[s:e], src[s:e])
	}, cfg)
	return n
}
