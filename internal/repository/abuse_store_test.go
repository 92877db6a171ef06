package repository

import (
	"context"
	"testing"

	"GridPull/internal/domain/repository"
	"GridPull/internal/store"
)

func newAbuseStore(t *testing.T) repository.AbuseStore {
	t.Helper()
	shard, err := store.Open(t.TempDir(), "abuse")
	if err != nil {
		t.Fatalf("open shard: %v", err)
	}
	t.Cleanup(func() { shard.Close() })

	s := NewAbuseStore(shard)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestReserveAdmitsUpToMax(t *testing.T) {
	s := newAbuseStore(t)
	ctx := context.Background()

	for i := int64(0); i < 2; i++ {
		ok, err := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 0, 1000+i, 2)
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}

	ok, err := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 0, 1002, 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if ok {
		t.Fatalf("request over max should be denied")
	}
}

func TestReserveMatchesExactIdentity(t *testing.T) {
	s := newAbuseStore(t)
	ctx := context.Background()

	if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 0, 1000, 1); !ok {
		t.Fatalf("first identity should be admitted")
	}
	if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 0, 1001, 1); ok {
		t.Fatalf("same identity should be denied at max")
	}

	// Any differing tuple component is a separate budget.
	if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS2", "sess-a", 0, 1002, 1); !ok {
		t.Fatalf("different asn should be admitted")
	}
	if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-b", 0, 1003, 1); !ok {
		t.Fatalf("different session should be admitted")
	}
	if ok, _ := s.Reserve(ctx, "9.9.9.9", "AS1", "sess-a", 0, 1004, 1); !ok {
		t.Fatalf("different ip should be admitted")
	}
}

func TestReservePrunesExpiredRows(t *testing.T) {
	s := newAbuseStore(t)
	ctx := context.Background()

	if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 0, 1000, 1); !ok {
		t.Fatalf("first request should be admitted")
	}
	// Cutoff is exclusive: the row at ts=1000 survives a cutoff of 1000.
	if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 1000, 1500, 1); ok {
		t.Fatalf("row at the cutoff must still count")
	}
	// Past the cutoff the old row is pruned and budget is restored.
	ok, err := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 1001, 2000, 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !ok {
		t.Fatalf("expired row must not count against the budget")
	}
}

func TestReserveDenialRecordsNothing(t *testing.T) {
	s := newAbuseStore(t)
	ctx := context.Background()

	if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 0, 1000, 1); !ok {
		t.Fatalf("first request should be admitted")
	}
	for ts := int64(1100); ts <= 1500; ts += 100 {
		if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 0, ts, 1); ok {
			t.Fatalf("request at %d should be denied", ts)
		}
	}

	// Only the admitted row exists; pruning past it restores the budget even
	// though denials came later.
	if ok, _ := s.Reserve(ctx, "1.2.3.4", "AS1", "sess-a", 1001, 2000, 1); !ok {
		t.Fatalf("denials must leave no accounting rows behind")
	}
}
