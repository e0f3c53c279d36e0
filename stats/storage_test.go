package stats

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestRecordAudit(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer s.Shutdown()

	s.RecordAudit(true, false, false, false)
	s.RecordAudit(true, false, false, true)
	s.RecordAudit(false, true, false, false)
	s.RecordAudit(false, false, true, false)

	current := s.GetCurrentStats()
	if current.AuditsCompleted != 2 {
		t.Errorf("Expected 2 completed audits, got %d", current.AuditsCompleted)
	}
	if current.AuditsFailed != 1 {
		t.Errorf("Expected 1 failed audit, got %d", current.AuditsFailed)
	}
	if current.AuditsReused != 1 {
		t.Errorf("Expected 1 reused audit, got %d", current.AuditsReused)
	}
	if current.CriticalPages != 1 {
		t.Errorf("Expected 1 critical page, got %d", current.CriticalPages)
	}
	if current.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set after recording")
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	s.RecordAudit(true, false, false, true)
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "stats.json")); err != nil {
		t.Fatalf("stats.json not written: %v", err)
	}

	reloaded, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer reloaded.Shutdown()

	current := reloaded.GetCurrentStats()
	if current.AuditsCompleted != 1 {
		t.Errorf("Expected 1 completed audit after reload, got %d", current.AuditsCompleted)
	}
	if current.CriticalPages != 1 {
		t.Errorf("Expected 1 critical page after reload, got %d", current.CriticalPages)
	}
}

func TestGetMonthlyStats(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer s.Shutdown()

	if _, ok := s.GetMonthlyStats("1999-01"); ok {
		t.Error("Expected no stats for an unrecorded month")
	}

	s.RecordAudit(true, false, false, false)

	month := time.Now().Format("2006-01")
	monthly, ok := s.GetMonthlyStats(month)
	if !ok {
		t.Fatalf("Expected stats for %s", month)
	}
	if monthly.AuditsCompleted != 1 {
		t.Errorf("Expected 1 completed audit, got %d", monthly.AuditsCompleted)
	}
}

func TestCleanup(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer s.Shutdown()

	now := time.Now()
	current := now.Format("2006-01")
	previous := now.AddDate(0, -1, 0).Format("2006-01")
	ancient := now.AddDate(0, -6, 0).Format("2006-01")

	s.mutex.Lock()
	s.stats[current] = &MonthlyStats{AuditsCompleted: 1}
	s.stats[previous] = &MonthlyStats{AuditsCompleted: 2}
	s.stats[ancient] = &MonthlyStats{AuditsCompleted: 3}
	s.mutex.Unlock()

	s.Cleanup()

	months := s.GetAllMonths()
	if len(months) != 2 {
		t.Fatalf("Expected 2 months after cleanup, got %d: %v", len(months), months)
	}
	if months[0] != current || months[1] != previous {
		t.Errorf("Expected [%s %s] newest first, got %v", current, previous, months)
	}
	if _, ok := s.GetMonthlyStats(ancient); ok {
		t.Errorf("Expected %s to be removed by cleanup", ancient)
	}
}

func TestNewStoragePrunesOldMonths(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	current := now.Format("2006-01")
	ancient := now.AddDate(0, -6, 0).Format("2006-01")

	seed := `{"` + current + `":{"audits_completed":2},"` + ancient + `":{"audits_completed":9}}`
	if err := os.WriteFile(filepath.Join(dir, "stats.json"), []byte(seed), 0o644); err != nil {
		t.Fatalf("Failed to seed stats file: %v", err)
	}

	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer s.Shutdown()

	if _, ok := s.GetMonthlyStats(ancient); ok {
		t.Errorf("Expected %s to be pruned at startup", ancient)
	}
	if current := s.GetCurrentStats(); current.AuditsCompleted != 2 {
		t.Errorf("Expected current month to survive pruning, got %+v", current)
	}
}

func TestShutdownFlushesPendingWrites(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	// Recorded counters are buffered for the background writer; Shutdown
	// must land them on disk regardless of whether it ran yet.
	for i := 0; i < 5; i++ {
		s.RecordAudit(true, false, false, false)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	reloaded, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer reloaded.Shutdown()

	if current := reloaded.GetCurrentStats(); current.AuditsCompleted != 5 {
		t.Errorf("Expected 5 completed audits after shutdown flush, got %d", current.AuditsCompleted)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer s.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordAudit(true, false, false, false)
				s.GetCurrentStats()
			}
		}()
	}
	wg.Wait()

	current := s.GetCurrentStats()
	if current.AuditsCompleted != 1000 {
		t.Errorf("Expected 1000 completed audits, got %d", current.AuditsCompleted)
	}
}
