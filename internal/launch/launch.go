// Package launch decides launch geometry for element-wise kernels.
package launch

import (
	"fmt"
)

// Defaults for the launch policy.
const (
	// MaxBlocks caps the number of blocks in a launch.
	MaxBlocks = 512
	// DefaultBatchSize is the number of work items a block is expected to cover.
	DefaultBatchSize = 512
	// DefaultThreadsPerBlock is the number of concurrent lanes in a block.
	DefaultThreadsPerBlock = 4
)

// Fixed is the reference geometry of 256 blocks of 512 threads, independent
// of the workload size.
var Fixed = Geometry{Blocks: 256, Threads: 512}

// Geometry is the shape of a launch: Blocks execution units, each running
// Threads lanes.
type Geometry struct {
	Blocks  int
	Threads int
}

// Size returns the total number of lanes in the launch.
func (g Geometry) Size() int {
	return g.Blocks * g.Threads
}

// String implements fmt.Stringer.
func (g Geometry) String() string {
	return fmt.Sprintf("<<<%d, %d>>>", g.Blocks, g.Threads)
}

// Blocks returns the number of blocks to request for count work items when
// each block covers batch items. The result is at least 1 and at most
// MaxBlocks.
func Blocks(count, batch int) int {
	return blocks(count, batch, MaxBlocks)
}

func blocks(count, batch, limit int) int {
	batch = max(batch, 1)
	n := max(count/batch, 1)
	if count%batch != 0 && count > batch {
		n++
	}
	return max(min(n, limit), 1)
}

// Config is the launch policy.
type Config struct {
	BatchSize       int  // Work items per block when sizing the grid.
	MaxBlocks       int  // Upper bound on blocks per launch.
	ThreadsPerBlock int  // Lanes per block.
	UseFixed        bool // Ignore the workload size and launch Fixed.
}

// DefaultConfig returns the default scaling policy.
func DefaultConfig() Config {
	return Config{
		BatchSize:       DefaultBatchSize,
		MaxBlocks:       MaxBlocks,
		ThreadsPerBlock: DefaultThreadsPerBlock,
	}
}

// For returns the geometry for a launch over length work items.
func (c Config) For(length int) Geometry {
	if c.UseFixed {
		return Fixed
	}
	limit := c.MaxBlocks
	if limit <= 0 {
		limit = MaxBlocks
	}
	return Geometry{
		Blocks:  blocks(length, c.BatchSize, limit),
		Threads: max(c.ThreadsPerBlock, 1),
	}
}
