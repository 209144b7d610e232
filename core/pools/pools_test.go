package pools

import "testing"

type poolableThing struct {
	fd    int
	reset bool
}

func (p *poolableThing) Reset()       { p.reset = true; p.fd = -1 }
func (p *poolableThing) SetFD(fd int) { p.fd = fd }

func TestConnectionPool_GetPutResetsAndTracksStats(t *testing.T) {
	cp := NewConnectionPool(8, func() any { return &poolableThing{fd: -1} })

	obj := cp.Get().(*poolableThing)
	obj.SetFD(42)
	cp.Put(obj)

	if !obj.reset {
		t.Fatal("Put() should call Reset() on a ConnectionPoolable")
	}

	gets, puts, _ := cp.Stats()
	if gets != 1 || puts != 1 {
		t.Fatalf("Stats() = gets=%d puts=%d, want 1, 1", gets, puts)
	}
}

func TestConnectionPool_PutIgnoresNonPoolable(t *testing.T) {
	cp := NewConnectionPool(4, func() any { return 7 })
	obj := cp.Get()
	cp.Put(obj)

	_, puts, _ := cp.Stats()
	if puts != 1 {
		t.Fatalf("Stats().puts = %d, want 1", puts)
	}
}

func TestSmartPool_WarmupThenGetPutCountsStats(t *testing.T) {
	sp := NewSmartPool(SmartPoolConfig{
		New:        func() any { return make(map[string]string, 1) },
		WarmupSize: 4,
	})

	m := sp.Get().(map[string]string)
	m["k"] = "v"
	sp.Put(m)

	stats := sp.Stats()
	if stats.Gets != 1 || stats.Puts != 1 {
		t.Fatalf("Stats() = %+v, want one get and one put", stats)
	}
}

func TestSmartPool_ResetFuncRunsOnPut(t *testing.T) {
	resetCalls := 0
	sp := NewSmartPool(SmartPoolConfig{
		New:   func() any { return make(map[string]string, 1) },
		Reset: func(any) { resetCalls++ },
	})

	obj := sp.Get()
	sp.Put(obj)

	if resetCalls != 1 {
		t.Fatalf("Reset ran %d times, want 1", resetCalls)
	}
}
