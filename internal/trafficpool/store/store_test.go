package store

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"trafficpool_backend/internal/trafficpool/domain"
)

var poolTime = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.UpsertLeads([]domain.Lead{
		{ID: "u1", Status: domain.StatusPending},
		{ID: "u2", Status: domain.StatusPending},
		{ID: "u3", Status: domain.StatusPending},
	})
	if err := s.PutPool(NewPool("pool-a", "High Intent", "", nil, poolTime)); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	return s
}

func TestAddToPool_IsIdempotentPerLead(t *testing.T) {
	s := seeded(t)

	first, err := s.AddToPool([]string{"u1"}, "pool-a")
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if !reflect.DeepEqual(first.Added, []string{"u1"}) || len(first.AlreadyMember) != 0 {
		t.Fatalf("first add: expected added [u1], got %+v", first)
	}

	second, err := s.AddToPool([]string{"u1", "u2"}, "pool-a")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if !reflect.DeepEqual(second.Added, []string{"u2"}) {
		t.Fatalf("expected added [u2], got %v", second.Added)
	}
	if !reflect.DeepEqual(second.AlreadyMember, []string{"u1"}) {
		t.Fatalf("expected alreadyMember [u1], got %v", second.AlreadyMember)
	}

	// Membership stays single: no double entries after the repeat.
	u1, _ := s.Get("u1")
	if !reflect.DeepEqual(u1.PoolIDs, []string{"pool-a"}) {
		t.Fatalf("expected single membership, got %v", u1.PoolIDs)
	}
}

func TestAddToPool_DuplicateIDsInOneBatchCollapse(t *testing.T) {
	s := seeded(t)

	result, err := s.AddToPool([]string{"u1", "u1", "u1"}, "pool-a")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !reflect.DeepEqual(result.Added, []string{"u1"}) {
		t.Fatalf("expected one add, got %v", result.Added)
	}
}

func TestAddToPool_ValidatesBatchAtomically(t *testing.T) {
	s := seeded(t)

	_, err := s.AddToPool([]string{"u1", "ghost"}, "pool-a")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// The valid half of the batch must not have been applied.
	u1, _ := s.Get("u1")
	if len(u1.PoolIDs) != 0 {
		t.Fatalf("failed batch must not mutate memberships, got %v", u1.PoolIDs)
	}

	_, err = s.AddToPool([]string{"u1"}, "no-such-pool")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown pool, got %v", err)
	}
}

func TestAddToPool_RejectsComputedAndSentinelTargets(t *testing.T) {
	s := seeded(t)

	for _, target := range []string{domain.UncategorizedPoolID, domain.PoolFilterNone, domain.PoolFilterAll} {
		_, err := s.AddToPool([]string{"u1"}, target)
		if !errors.Is(err, domain.ErrInvalidTarget) {
			t.Fatalf("target %q: expected ErrInvalidTarget, got %v", target, err)
		}
	}
}

func TestPools_DerivesMemberCountsAndAppendsUncategorized(t *testing.T) {
	s := seeded(t)
	if _, err := s.AddToPool([]string{"u1", "u2"}, "pool-a"); err != nil {
		t.Fatalf("add: %v", err)
	}

	views := s.Pools()
	if len(views) != 2 {
		t.Fatalf("expected pool-a plus Uncategorized, got %d views", len(views))
	}

	if views[0].ID != "pool-a" || views[0].MemberCount != 2 {
		t.Fatalf("expected pool-a with 2 members, got %s/%d", views[0].ID, views[0].MemberCount)
	}

	last := views[len(views)-1]
	if last.ID != domain.UncategorizedPoolID || !last.System {
		t.Fatalf("Uncategorized must be last and system, got %+v", last)
	}
	if last.MemberCount != 1 {
		t.Fatalf("expected 1 uncategorized lead, got %d", last.MemberCount)
	}
}

func TestRemovePool_CascadesMembershipRemoval(t *testing.T) {
	s := seeded(t)
	if err := s.PutPool(NewPool("pool-b", "Follow Up", "", nil, poolTime.Add(time.Hour))); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	if _, err := s.AddToPool([]string{"u1", "u2"}, "pool-a"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.AddToPool([]string{"u1"}, "pool-b"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.RemovePool("pool-a"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// u1 keeps its other membership; u2 falls back to uncategorized.
	u1, _ := s.Get("u1")
	if !reflect.DeepEqual(u1.PoolIDs, []string{"pool-b"}) {
		t.Fatalf("expected u1 in pool-b only, got %v", u1.PoolIDs)
	}
	u2, _ := s.Get("u2")
	if len(u2.PoolIDs) != 0 {
		t.Fatalf("expected u2 unpooled, got %v", u2.PoolIDs)
	}

	// Leads are never deleted by a pool cascade.
	if s.Len() != 3 {
		t.Fatalf("cascade must not delete leads, got %d", s.Len())
	}
}

func TestRemovePool_GuardsSystemAndUnknownPools(t *testing.T) {
	s := seeded(t)

	if err := s.RemovePool(domain.UncategorizedPoolID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for uncategorized, got %v", err)
	}
	if err := s.RemovePool("ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	system := NewPool("sys", "System Pool", "", nil, poolTime)
	system.System = true
	if err := s.PutPool(system); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	if err := s.RemovePool("sys"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for system pool, got %v", err)
	}
}

func TestPutPool_RejectsUncategorizedID(t *testing.T) {
	s := New()
	err := s.PutPool(domain.Pool{ID: domain.UncategorizedPoolID, Name: "fake"})
	if !errors.Is(err, domain.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestSnapshot_DoesNotAliasStoreState(t *testing.T) {
	s := seeded(t)
	if _, err := s.AddToPool([]string{"u1"}, "pool-a"); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap := s.Snapshot()
	snap[0].PoolIDs[0] = "mutated"
	snap[0].Status = domain.StatusLost

	u1, _ := s.Get("u1")
	if u1.PoolIDs[0] != "pool-a" || u1.Status != domain.StatusPending {
		t.Fatalf("snapshot mutation leaked into the store: %+v", u1)
	}
}

func TestUpsertLeads_PreservesInsertionOrderOnReplace(t *testing.T) {
	s := New()
	s.UpsertLeads([]domain.Lead{{ID: "u1"}, {ID: "u2"}})
	s.UpsertLeads([]domain.Lead{{ID: "u1", DisplayName: "renamed"}})

	snap := s.Snapshot()
	if snap[0].ID != "u1" || snap[1].ID != "u2" {
		t.Fatalf("replace must keep position, got %s,%s", snap[0].ID, snap[1].ID)
	}
	if snap[0].DisplayName != "renamed" {
		t.Fatalf("replace must update fields, got %q", snap[0].DisplayName)
	}
}

func TestApplyDerived_IgnoresUnknownIDs(t *testing.T) {
	s := seeded(t)
	s.ApplyDerived([]domain.Lead{
		{ID: "u1", Score: domain.RFMScore{Recency: 5, Priority: domain.PriorityHigh}, IsDuplicate: true},
		{ID: "ghost", Score: domain.RFMScore{Recency: 5}},
	})

	u1, _ := s.Get("u1")
	if u1.Score.Recency != 5 || !u1.IsDuplicate {
		t.Fatalf("derived fields not applied: %+v", u1)
	}
	if s.Len() != 3 {
		t.Fatalf("unknown derived ids must not create leads")
	}
}

func TestSetStatus_UnknownLead(t *testing.T) {
	s := seeded(t)
	if err := s.SetStatus("ghost", domain.StatusContacted); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetStatus("u1", domain.StatusContacted); err != nil {
		t.Fatalf("set status: %v", err)
	}
	u1, _ := s.Get("u1")
	if u1.Status != domain.StatusContacted {
		t.Fatalf("status not applied, got %q", u1.Status)
	}
}
