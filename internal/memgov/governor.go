// Package memgov bounds the optimizer's steady-state memory footprint
// under sustained load. It carries no business logic.
package memgov

import (
	"os"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
)

// Trimmer is the slice of the metrics recorder the governor needs
type Trimmer interface {
	Trim(max int)
	Len() int
}

// Governor periodically compacts recorded history and triggers resource
// reclamation under memory pressure.
type Governor struct {
	mu             sync.Mutex
	thresholdBytes uint64
	interval       int
	retention      int
	trimmer        Trimmer
	calls          int
	reclaims       int

	proc *process.Process

	// measure is swappable for pressure tests
	measure func() uint64
	// reclaim is swappable so tests don't force real GC passes
	reclaim func()
}

// New creates a governor. thresholdMB is the resident-memory level that
// triggers reclamation; every interval calls the trimmer's history is
// compacted to retention even if it has not reached capacity.
func New(thresholdMB uint64, interval, retention int, trimmer Trimmer) *Governor {
	if thresholdMB == 0 {
		thresholdMB = 4096
	}
	if interval <= 0 {
		interval = 100
	}

	g := &Governor{
		thresholdBytes: thresholdMB * 1024 * 1024,
		interval:       interval,
		retention:      retention,
		trimmer:        trimmer,
		reclaim:        debug.FreeOSMemory,
	}

	// Process handle resolution can fail in restricted environments;
	// the heap-stats fallback covers that
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		g.proc = p
	}
	g.measure = g.residentBytes

	return g
}

// MaybeReclaim is called by the orchestrator before each backend call.
// Every Nth call the sample history is trimmed proactively; when resident
// memory exceeds the threshold a garbage collection and OS memory release
// pass is requested.
func (g *Governor) MaybeReclaim() {
	g.mu.Lock()
	g.calls++
	compact := g.calls%g.interval == 0
	g.mu.Unlock()

	if compact && g.trimmer != nil {
		g.trimmer.Trim(g.retention)
	}

	if g.measure() > g.thresholdBytes {
		g.reclaim()
		g.mu.Lock()
		g.reclaims++
		g.mu.Unlock()
	}
}

// Reclaims returns how many reclamation passes have been triggered
func (g *Governor) Reclaims() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reclaims
}

// ResidentBytes reports the process's current resident set size, falling
// back to Go heap usage when process stats are unavailable.
func (g *Governor) ResidentBytes() uint64 {
	return g.measure()
}

func (g *Governor) residentBytes() uint64 {
	if g.proc != nil {
		if info, err := g.proc.MemoryInfo(); err == nil && info != nil {
			return info.RSS
		}
	}
	return HeapBytes()
}

// HeapBytes returns the Go runtime's current heap allocation. Used both as
// the RSS fallback and for the memory footprint recorded on each sample.
func HeapBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}
