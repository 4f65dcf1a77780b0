package metrics

import "testing"

type fakeStats struct {
	streams int
	bytes   int64
}

func (f fakeStats) Stats() (int, int64) { return f.streams, f.bytes }

func TestLiveness(t *testing.T) {
	checker := NewHealthChecker(nil)
	if status := checker.Liveness(); !status.OK {
		t.Fatal("liveness should always be OK")
	}
}

func TestReadinessReportsRegistryStats(t *testing.T) {
	checker := NewHealthChecker(fakeStats{streams: 3, bytes: 1024})

	status := checker.Readiness()
	if !status.OK {
		t.Fatal("readiness should be OK")
	}
	if status.Streams != 3 {
		t.Errorf("got %d streams, want 3", status.Streams)
	}
	if status.Bytes != 1024 {
		t.Errorf("got %d bytes, want 1024", status.Bytes)
	}
}

func TestReadinessWithoutStats(t *testing.T) {
	checker := NewHealthChecker(nil)
	if status := checker.Readiness(); !status.OK {
		t.Fatal("readiness should be OK with no stats source")
	}
}
