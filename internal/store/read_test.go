package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/lifeline/internal/model"
	"github.com/roach88/lifeline/internal/testutil"
)

func TestGet_NotFound(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestListAll_EmptyNotNil(t *testing.T) {
	s, _ := createTestStore(t)

	got, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if got == nil {
		t.Error("ListAll() returned nil, want empty slice")
	}
}

func TestListAll_NewestFirst(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec := testutil.NewOrigin(testutil.SequenceID(int64(i)), "device-a", testutil.Epoch.Add(time.Duration(i)*time.Minute))
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	got, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	want := []string{testutil.SequenceID(3), testutil.SequenceID(2), testutil.SequenceID(1)}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("ListAll()[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestListPendingSync_OldestFirstAndFiltered(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec := testutil.NewOrigin(testutil.SequenceID(int64(i)), "device-a", testutil.Epoch.Add(time.Duration(4-i)*time.Minute))
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}
	if err := s.MarkSynced(ctx, testutil.SequenceID(2)); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}

	got, err := s.ListPendingSync(ctx)
	if err != nil {
		t.Fatalf("ListPendingSync() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListPendingSync() returned %d, want 2", len(got))
	}
	// Record 3 was created first.
	if got[0].ID != testutil.SequenceID(3) || got[1].ID != testutil.SequenceID(1) {
		t.Errorf("order = [%s %s], want [3 1]", got[0].ID, got[1].ID)
	}
}

func TestHasCopy(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	relayed := testutil.NewOrigin("local-copy", "device-b", testutil.Epoch)
	relayed.OriginRequestID = "origin-1"
	relayed.HopCount = 1
	if err := s.Put(ctx, relayed); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	tests := []struct {
		name     string
		id       string
		originID string
		want     bool
	}{
		{"matches origin id", "other", "origin-1", true},
		{"payload id equals stored origin", "origin-1", "", true},
		{"matches local id", "local-copy", "x", true},
		{"origin arg equals local id", "", "local-copy", true},
		{"no match", "a", "b", false},
		{"empty args never match", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.HasCopy(ctx, tt.id, tt.originID)
			if err != nil {
				t.Fatalf("HasCopy() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasCopy(%q, %q) = %v, want %v", tt.id, tt.originID, got, tt.want)
			}
		})
	}
}

func TestCountByStatus(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() failed: %v", err)
	}
	for _, st := range model.Statuses {
		if counts[st] != 0 {
			t.Errorf("empty store count[%s] = %d", st, counts[st])
		}
	}

	for i := 1; i <= 3; i++ {
		rec := testutil.NewOrigin(testutil.SequenceID(int64(i)), "device-a", testutil.Epoch)
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}
	_ = s.MarkSynced(ctx, testutil.SequenceID(1))

	counts, _ = s.CountByStatus(ctx)
	if counts[model.StatusPendingSync] != 2 || counts[model.StatusSynced] != 1 {
		t.Errorf("counts = %v, want 2 pending and 1 synced", counts)
	}
}

func TestReadLogSince(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.AppendLog(ctx, model.SyncLogEntry{RequestID: "r", DeviceID: "d", Action: model.ActionRebroadcast}); err != nil {
			t.Fatalf("AppendLog() failed: %v", err)
		}
	}

	got, err := s.ReadLogSince(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ReadLogSince() failed: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 3 || got[1].Seq != 4 {
		t.Errorf("ReadLogSince(2, 2) = %+v, want seqs 3 and 4", got)
	}

	all, _ := s.ReadLogSince(ctx, 0, 0)
	if len(all) != 5 {
		t.Errorf("ReadLogSince(0, 0) returned %d, want 5", len(all))
	}
}
