package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinChunkSize = 16

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var counter int64
	For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestFor_SmallChunk(t *testing.T) {
	// Test that small work units fall back to sequential.
	cfg := DefaultConfig()

	var calls int64
	n := cfg.MinChunkSize - 1

	ForRange(n, func(s, e int) {
		atomic.AddInt64(&calls, 1)
		if s != 0 || e != n {
			t.Errorf("expected single range [0,%d), got [%d,%d)", n, s, e)
		}
	}, cfg)

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestForRange_CoversEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 7, MinChunkSize: 3}
	n := 101
	hits := make([]int32, n)

	ForRange(n, func(s, e int) {
		for i := s; i < e; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	}, cfg)

	for i, h := range hits {
		if h != 1 {
			t.Errorf("index %d visited %d times", i, h)
		}
	}
}

func TestForRange_Empty(t *testing.T) {
	called := false
	ForRange(0, func(_, _ int) { called = true }, DefaultConfig())
	if called {
		t.Error("ForRange(0) should not call f")
	}
}

func TestCopy(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}
	src := make([]byte, 1000)
	for i := range src {
		src[i] = byte(i)
	}
	dst := make([]byte, 1000)

	if n := Copy(dst, src, cfg); n != 1000 {
		t.Fatalf("Copy returned %d, want 1000", n)
	}
	for i := range dst {
		if dst[i] != src[i] {
			t.Fatalf("byte %d = %d, want %d", i, dst[i], src[i])
		}
	}
}

func BenchmarkCopy(b *testing.B) {
	cfg := DefaultConfig()
	src := make([]byte, 8<<20)
	dst := make([]byte, 8<<20)

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Copy(dst, src, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			Copy(dst, src, cfgSeq)
		}
	})
}
