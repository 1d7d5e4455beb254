// Package device emulates a parallel accelerator on goroutines.
//
// A launch runs a grid of blocks; every block runs a fixed number of lanes
// concurrently and gives them a barrier (Thread.SyncThreads) and per-block
// shared storage, mirroring the CUDA execution model. Launches go through a
// Stream, which preserves submission order and reports faults on
// Synchronize.
package device

import (
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/born-ml/ndexec/internal/launch"
)

// Config controls the emulated device.
type Config struct {
	Workers int           // Blocks executing at the same time.
	Launch  launch.Config // Launch geometry policy.
}

// DefaultConfig returns defaults based on CPU count, overridden by the
// NDEXEC_WORKERS, NDEXEC_THREADS_PER_BLOCK, NDEXEC_BATCH_SIZE,
// NDEXEC_MAX_BLOCKS and NDEXEC_FIXED_GEOMETRY environment variables.
func DefaultConfig() Config {
	cfg := Config{
		Workers: runtime.NumCPU(),
		Launch:  launch.DefaultConfig(),
	}
	envInt("NDEXEC_WORKERS", &cfg.Workers)
	envInt("NDEXEC_THREADS_PER_BLOCK", &cfg.Launch.ThreadsPerBlock)
	envInt("NDEXEC_BATCH_SIZE", &cfg.Launch.BatchSize)
	envInt("NDEXEC_MAX_BLOCKS", &cfg.Launch.MaxBlocks)
	if v, err := strconv.ParseBool(os.Getenv("NDEXEC_FIXED_GEOMETRY")); err == nil {
		cfg.Launch.UseFixed = v
	}
	return cfg
}

func envInt(name string, dst *int) {
	if v, err := strconv.Atoi(os.Getenv(name)); err == nil && v > 0 {
		*dst = v
	}
}

// Context is an execution context: a configuration and the stream launches
// are submitted to. A Context must not be used from several goroutines
// without external synchronization.
type Context struct {
	cfg    Config
	stream *Stream
}

// NewContext creates a context with its own stream.
func NewContext(cfg Config) *Context {
	return &Context{
		cfg:    cfg,
		stream: newStream(cfg.Workers),
	}
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the process-wide context, created on first use with
// DefaultConfig.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultCtx = NewContext(DefaultConfig())
	})
	return defaultCtx
}

// Config returns the context configuration.
func (c *Context) Config() Config {
	return c.cfg
}

// Stream returns the context's stream.
func (c *Context) Stream() *Stream {
	return c.stream
}

// Geometry returns the launch geometry for length work items.
func (c *Context) Geometry(length int) launch.Geometry {
	return c.cfg.Launch.For(length)
}

// Close closes the context's stream.
func (c *Context) Close() error {
	return c.stream.Close()
}
