package launch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlocks(t *testing.T) {
	tests := []struct {
		name         string
		count, batch int
		want         int
	}{
		{"remainder adds a block", 1000, 512, 2},
		{"exact fit", 512, 512, 1},
		{"empty workload still gets one block", 0, 512, 1},
		{"smaller than batch", 100, 512, 1},
		{"cap enforced", math.MaxInt32, 1, 512},
		{"just under cap", 511, 1, 511},
		{"zero batch treated as one", 10, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Blocks(tt.count, tt.batch))
		})
	}
}

func TestBlocks_NeverZero(t *testing.T) {
	for count := 0; count < 2000; count += 37 {
		for _, batch := range []int{1, 7, 64, 512, 4096} {
			got := Blocks(count, batch)
			assert.GreaterOrEqual(t, got, 1)
			assert.LessOrEqual(t, got, MaxBlocks)
		}
	}
}

func TestConfigFor(t *testing.T) {
	cfg := DefaultConfig()

	g := cfg.For(1000)
	assert.Equal(t, Geometry{Blocks: 2, Threads: DefaultThreadsPerBlock}, g)

	cfg.MaxBlocks = 3
	assert.Equal(t, 3, cfg.For(1<<20).Blocks)

	cfg.UseFixed = true
	assert.Equal(t, Fixed, cfg.For(1))
}

func TestConfigFor_ZeroValue(t *testing.T) {
	var cfg Config
	g := cfg.For(10)
	assert.Equal(t, 10, g.Blocks)
	assert.Equal(t, 1, g.Threads)
}

func TestGeometry(t *testing.T) {
	g := Geometry{Blocks: 3, Threads: 4}
	assert.Equal(t, 12, g.Size())
	assert.Equal(t, "<<<3, 4>>>", g.String())
}
