package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roach88/lifeline/internal/model"
	"github.com/roach88/lifeline/internal/testutil"
)

func TestPut_InsertsAndReadsBack(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	rec.Notes = "ward 4"
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != rec {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
}

func TestPut_ReplacesButKeepsCreatedAt(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	changed := rec
	changed.Units = 7
	changed.CreatedAt = testutil.Epoch.Add(time.Hour)
	changed.UpdatedAt = testutil.Epoch.Add(2 * time.Hour)
	if err := s.Put(ctx, changed); err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Units != 7 {
		t.Errorf("Units = %d, want 7", got.Units)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt changed to %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
	if !got.UpdatedAt.Equal(changed.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, changed.UpdatedAt)
	}
}

func TestPut_RejectsInvalidRecord(t *testing.T) {
	s, _ := createTestStore(t)

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	rec.HopCount = 6
	rec.MaxHops = 5

	err := s.Put(context.Background(), rec)
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Put() error = %v, want ValidationError", err)
	}
	if verr.Field != "hopCount" {
		t.Errorf("Field = %q, want hopCount", verr.Field)
	}
}

func TestPut_ZeroUpdatedAtDefaultsToCreatedAt(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	rec.UpdatedAt = time.Time{}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, _ := s.Get(ctx, rec.ID)
	if !got.UpdatedAt.Equal(rec.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, rec.CreatedAt)
	}
}

func TestRecordsAreNeverDeleted(t *testing.T) {
	s, _ := createTestStore(t)

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	if err := s.Put(context.Background(), rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if _, err := s.db.Exec(`DELETE FROM requests`); err == nil {
		t.Error("DELETE on requests should fail")
	}
}

func TestMarkSynced(t *testing.T) {
	s, clk := createTestStore(t)
	ctx := context.Background()

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	later := clk.Advance(time.Minute)
	if err := s.MarkSynced(ctx, rec.ID); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}

	got, _ := s.Get(ctx, rec.ID)
	if got.Status != model.StatusSynced {
		t.Errorf("Status = %s, want synced", got.Status)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt changed to %v", got.CreatedAt)
	}

	// Second call is a no-op apart from updatedAt.
	if err := s.MarkSynced(ctx, rec.ID); err != nil {
		t.Errorf("second MarkSynced() failed: %v", err)
	}
}

func TestMarkSynced_UnknownID(t *testing.T) {
	s, _ := createTestStore(t)

	err := s.MarkSynced(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkSynced() error = %v, want ErrNotFound", err)
	}
}

func TestAppendLog_AssignsIncreasingSeq(t *testing.T) {
	s, clk := createTestStore(t)
	ctx := context.Background()

	seq1, err := s.AppendLog(ctx, model.SyncLogEntry{RequestID: "r1", DeviceID: "d1", Action: model.ActionEnqueued})
	if err != nil {
		t.Fatalf("AppendLog() failed: %v", err)
	}
	seq2, err := s.AppendLog(ctx, model.SyncLogEntry{RequestID: "r1", DeviceID: "d1", Action: model.ActionRebroadcast})
	if err != nil {
		t.Fatalf("AppendLog() failed: %v", err)
	}
	if seq2 <= seq1 {
		t.Errorf("seq not increasing: %d then %d", seq1, seq2)
	}

	entries, _ := s.ReadLog(ctx, "r1")
	if len(entries) != 2 {
		t.Fatalf("ReadLog() returned %d entries, want 2", len(entries))
	}
	if !entries[0].Timestamp.Equal(clk.Now()) {
		t.Errorf("zero Timestamp not filled from clock: %v", entries[0].Timestamp)
	}
}

func TestAppendLog_RejectsUnknownAction(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.AppendLog(context.Background(), model.SyncLogEntry{RequestID: "r1", Action: "deleted"})
	if err == nil {
		t.Error("AppendLog() should reject unknown action")
	}
}

func TestEnqueue_WritesRecordAndLog(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	seq, err := s.Enqueue(ctx, rec, "device-a")
	if err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}

	entries, _ := s.ReadLog(ctx, rec.ID)
	if len(entries) != 1 || entries[0].Action != model.ActionEnqueued || entries[0].DeviceID != "device-a" {
		t.Errorf("ReadLog() = %+v, want one enqueued entry by device-a", entries)
	}
}

func TestEnqueue_InvalidRecordWritesNothing(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	rec.Units = 0
	if _, err := s.Enqueue(ctx, rec, "device-a"); err == nil {
		t.Fatal("Enqueue() should fail for invalid record")
	}

	entries, _ := s.ReadLogSince(ctx, 0, 0)
	if len(entries) != 0 {
		t.Errorf("log has %d entries after failed enqueue, want 0", len(entries))
	}
}

func TestMarkSyncedAndLog(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec := testutil.NewOrigin(testutil.SequenceID(1), "device-a", testutil.Epoch)
	if _, err := s.Enqueue(ctx, rec, "device-a"); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if err := s.MarkSyncedAndLog(ctx, rec.ID, "device-a"); err != nil {
		t.Fatalf("MarkSyncedAndLog() failed: %v", err)
	}

	got, _ := s.Get(ctx, rec.ID)
	if got.Status != model.StatusSynced {
		t.Errorf("Status = %s, want synced", got.Status)
	}
	entries, _ := s.ReadLog(ctx, rec.ID)
	if len(entries) != 2 || entries[1].Action != model.ActionSynced {
		t.Errorf("ReadLog() = %+v, want enqueued then synced", entries)
	}
}

func TestMarkSyncedAndLog_UnknownIDLogsNothing(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	err := s.MarkSyncedAndLog(ctx, "missing", "device-a")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkSyncedAndLog() error = %v, want ErrNotFound", err)
	}
	entries, _ := s.ReadLog(ctx, "missing")
	if len(entries) != 0 {
		t.Errorf("log entry written for unknown id: %+v", entries)
	}
}

func TestConcurrentEnqueue(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := testutil.NewOrigin(testutil.SequenceID(int64(i)), "device-a", testutil.Epoch)
			if _, err := s.Enqueue(ctx, rec, "device-a"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Enqueue() failed: %v", err)
	}

	all, _ := s.ListAll(ctx)
	if len(all) != n {
		t.Errorf("ListAll() returned %d records, want %d", len(all), n)
	}
}

func TestCacheReplace(t *testing.T) {
	s, clk := createTestStore(t)
	ctx := context.Background()

	first := []model.Facility{
		{ID: "f1", Name: "City Blood Bank", Location: model.Location{Lat: 17.4, Lng: 78.4}},
		{ID: "f2", Name: "Red Cross", Location: model.Location{Lat: 17.5, Lng: 78.5}, Open24x7: true},
	}
	if err := s.CacheReplace(ctx, first); err != nil {
		t.Fatalf("CacheReplace() failed: %v", err)
	}

	got, err := s.CacheReadAll(ctx)
	if err != nil {
		t.Fatalf("CacheReadAll() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("CacheReadAll() returned %d, want 2", len(got))
	}
	if !got[1].Open24x7 {
		t.Error("Open24x7 not preserved")
	}
	if !got[0].LastUpdatedAt.Equal(clk.Now()) {
		t.Errorf("LastUpdatedAt = %v, want clock time", got[0].LastUpdatedAt)
	}

	if err := s.CacheReplace(ctx, []model.Facility{{ID: "f3", Name: "New"}}); err != nil {
		t.Fatalf("second CacheReplace() failed: %v", err)
	}
	got, _ = s.CacheReadAll(ctx)
	if len(got) != 1 || got[0].ID != "f3" {
		t.Errorf("cache not replaced wholesale: %+v", got)
	}
}

func TestCacheReplace_DuplicateIDRollsBack(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	if err := s.CacheReplace(ctx, []model.Facility{{ID: "f1", Name: "Keep"}}); err != nil {
		t.Fatalf("CacheReplace() failed: %v", err)
	}

	err := s.CacheReplace(ctx, []model.Facility{{ID: "x", Name: "A"}, {ID: "x", Name: "B"}})
	if err == nil {
		t.Fatal("CacheReplace() should fail on duplicate ids")
	}

	got, _ := s.CacheReadAll(ctx)
	if len(got) != 1 || got[0].ID != "f1" {
		t.Errorf("failed replace was not rolled back: %+v", got)
	}
}
