package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if _, err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if _, err := s.AddJob("not a cron line", func() {}); err == nil {
		t.Error("Expected error for invalid expression")
	}
}

func TestSchedulerEveryDescriptorRunsAndRemoves(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var runs atomic.Int32
	id, err := s.AddJob("@every 1s", func() { runs.Add(1) })
	if err != nil {
		t.Fatalf("Expected @every descriptor to parse, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Expected 1 entry, got %d", s.Len())
	}

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Fatal("Expected job to run at least once")
	}

	s.Remove(id)
	if s.Len() != 0 {
		t.Errorf("Expected no entries after Remove, got %d", s.Len())
	}
}
