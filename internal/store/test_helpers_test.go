package store

import (
	"path/filepath"
	"testing"

	"github.com/lumsvm/vorax/internal/conservation"
	"github.com/lumsvm/vorax/internal/isa"
	"github.com/lumsvm/vorax/internal/vm"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a conserving FUSE record at tick.
func createTestRecord(tick int64) vm.TraceRecord {
	return vm.TraceRecord{
		Tick:        tick,
		PC:          int(tick - 1),
		Op:          isa.FUSE,
		Instruction: "FUSE 0 1",
		Before:      vm.Snapshot{Zones: []int64{3, 4}, Buffers: []int64{0}},
		After:       vm.Snapshot{Zones: []int64{7, 0}, Buffers: []int64{0}},
		Cost:        1,
		Energy:      1000 - tick,
		Conservation: conservation.Check{
			Class: conservation.Conserve, Before: 7, After: 7, Held: true,
		},
	}
}
