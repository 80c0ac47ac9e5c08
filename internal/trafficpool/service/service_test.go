package service

import (
	"context"
	"testing"
	"time"

	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/internal/trafficpool/store"
	"trafficpool_backend/platform/apperr"
	"trafficpool_backend/platform/logger"
)

var svcNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, leads ...domain.Lead) (*Service, *store.Store) {
	t.Helper()
	s := store.New()
	s.UpsertLeads(leads)
	svc := New(s, nil, nil, logger.New("development"))
	svc.now = func() time.Time { return svcNow }
	return svc, s
}

func buyer(id string, purchases int, cents int64) domain.Lead {
	l := domain.Lead{ID: id, DisplayName: id, Status: domain.StatusPending, CreatedAt: svcNow.Add(-time.Hour)}
	for i := 0; i < purchases; i++ {
		l.Interactions = append(l.Interactions, domain.Interaction{
			Type:        domain.InteractionPurchase,
			Timestamp:   svcNow.Add(-time.Duration(i+1) * time.Hour),
			AmountCents: cents,
		})
	}
	return l
}

func TestQuery_ScoresRankAndPaginate(t *testing.T) {
	svc, _ := newTestService(t,
		buyer("whale", 21, 10_000), // 5/5/5: high priority
		domain.Lead{ID: "ghost", Status: domain.StatusPending, CreatedAt: svcNow}, // 1/1/1: low
	)

	result := svc.Query(context.Background(), domain.FilterSpec{}, 0, 10)
	if result.Total != 2 {
		t.Fatalf("expected total 2, got %d", result.Total)
	}
	if result.Items[0].ID != "whale" {
		t.Fatalf("high scorer must rank first, got %s", result.Items[0].ID)
	}
	if result.Items[0].Score.Segment != "Key Value Customer" {
		t.Fatalf("expected scored view, got segment %q", result.Items[0].Score.Segment)
	}

	// Out-of-range page keeps the total but yields no items.
	page9 := svc.Query(context.Background(), domain.FilterSpec{}, 9, 10)
	if page9.Total != 2 || len(page9.Items) != 0 {
		t.Fatalf("expected total 2 with empty page, got total %d items %d", page9.Total, len(page9.Items))
	}
}

func TestQuery_AnnotatesDuplicatesWithoutPersistingThem(t *testing.T) {
	svc, s := newTestService(t,
		domain.Lead{ID: "a", Phone: "+8613800138000", Status: domain.StatusPending, CreatedAt: svcNow.Add(-2 * time.Hour)},
		domain.Lead{ID: "b", Phone: "+8613800138000", Status: domain.StatusPending, CreatedAt: svcNow.Add(-time.Hour)},
	)

	result := svc.Query(context.Background(), domain.FilterSpec{}, 0, 10)
	flagged := 0
	for _, l := range result.Items {
		if l.IsDuplicate {
			flagged++
		}
	}
	if flagged != 1 {
		t.Fatalf("expected exactly one flagged duplicate, got %d", flagged)
	}

	// The read path derives; the store only changes on an explicit recompute.
	raw, _ := s.Get("b")
	if raw.IsDuplicate {
		t.Fatalf("query must not write derived fields back")
	}
}

func TestRecompute_WritesDerivedFieldsBack(t *testing.T) {
	svc, s := newTestService(t,
		buyer("whale", 21, 10_000),
		domain.Lead{ID: "a", Phone: "+8613800138000", Status: domain.StatusPending, CreatedAt: svcNow.Add(-2 * time.Hour)},
		domain.Lead{ID: "b", Phone: "+8613800138000", Status: domain.StatusPending, CreatedAt: svcNow.Add(-time.Hour)},
	)

	n, err := svc.Recompute(context.Background())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 leads recomputed, got %d", n)
	}

	whale, _ := s.Get("whale")
	if whale.Score.Segment != "Key Value Customer" {
		t.Fatalf("expected persisted segment, got %q", whale.Score.Segment)
	}
	b, _ := s.Get("b")
	if !b.IsDuplicate {
		t.Fatalf("expected duplicate flag persisted to store")
	}
}

func TestCreatePool_RejectsEmptyAndDuplicateNames(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CreatePool(context.Background(), "p1", "", "", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}

	if _, err := svc.CreatePool(context.Background(), "p1", "VIP", "", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreatePool(context.Background(), "p2", "VIP", "", nil); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}
}

func TestAddToPool_MapsDomainErrors(t *testing.T) {
	svc, _ := newTestService(t, domain.Lead{ID: "u1", Status: domain.StatusPending})
	if _, err := svc.CreatePool(context.Background(), "p1", "VIP", "", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddToPool(context.Background(), []string{"u1"}, domain.UncategorizedPoolID, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for uncategorized target, got %v", err)
	}
	if _, err := svc.AddToPool(context.Background(), []string{"ghost"}, "p1", ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unknown lead, got %v", err)
	}

	result, err := svc.AddToPool(context.Background(), []string{"u1"}, "p1", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(result.Added) != 1 {
		t.Fatalf("expected one added, got %+v", result)
	}
}

func TestAddToPool_StampsActingOperator(t *testing.T) {
	svc, s := newTestService(t,
		domain.Lead{ID: "u1", Status: domain.StatusPending},
		domain.Lead{ID: "u2", Status: domain.StatusPending},
	)
	if _, err := svc.CreatePool(context.Background(), "p1", "VIP", "", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddToPool(context.Background(), []string{"u1"}, "p1", "op-7"); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, _ := s.Get("u1")
	if got.AssignedOperatorID != "op-7" {
		t.Fatalf("expected operator op-7 on added lead, got %q", got.AssignedOperatorID)
	}

	// Re-adding an existing member must not reassign it.
	if _, err := svc.AddToPool(context.Background(), []string{"u1", "u2"}, "p1", "op-9"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	got, _ = s.Get("u1")
	if got.AssignedOperatorID != "op-7" {
		t.Fatalf("already-member lead must keep its operator, got %q", got.AssignedOperatorID)
	}
	got, _ = s.Get("u2")
	if got.AssignedOperatorID != "op-9" {
		t.Fatalf("expected operator op-9 on newly added lead, got %q", got.AssignedOperatorID)
	}
}

func TestUpdateStatus_StampsActingOperator(t *testing.T) {
	svc, s := newTestService(t, domain.Lead{ID: "u1", Status: domain.StatusPending})

	if err := svc.UpdateStatus(context.Background(), "u1", domain.StatusContacted, "op-3"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Get("u1")
	if got.Status != domain.StatusContacted {
		t.Fatalf("expected contacted, got %q", got.Status)
	}
	if got.AssignedOperatorID != "op-3" {
		t.Fatalf("expected operator op-3, got %q", got.AssignedOperatorID)
	}

	// An anonymous caller leaves the assignment untouched.
	if err := svc.UpdateStatus(context.Background(), "u1", domain.StatusConverted, ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.Get("u1")
	if got.AssignedOperatorID != "op-3" {
		t.Fatalf("blank operator must not clear assignment, got %q", got.AssignedOperatorID)
	}
}

func TestRemovePool_MapsForbiddenAndCascades(t *testing.T) {
	svc, s := newTestService(t, domain.Lead{ID: "u1", Status: domain.StatusPending})
	if _, err := svc.CreatePool(context.Background(), "p1", "VIP", "", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.AddToPool(context.Background(), []string{"u1"}, "p1", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.RemovePool(context.Background(), domain.UncategorizedPoolID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := svc.RemovePool(context.Background(), "ghost"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := svc.RemovePool(context.Background(), "p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	u1, _ := s.Get("u1")
	if len(u1.PoolIDs) != 0 {
		t.Fatalf("expected cascade to unpool u1, got %v", u1.PoolIDs)
	}
}

func TestGetLead_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetLead(context.Background(), "ghost"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQueryAll_ReturnsFullRankedView(t *testing.T) {
	svc, _ := newTestService(t,
		buyer("whale", 21, 10_000),
		domain.Lead{ID: "ghost", Status: domain.StatusPending, CreatedAt: svcNow},
	)

	view := svc.QueryAll(context.Background(), domain.FilterSpec{})
	if len(view) != 2 {
		t.Fatalf("expected full view, got %d", len(view))
	}
	if view[0].ID != "whale" {
		t.Fatalf("expected ranked order, got %s first", view[0].ID)
	}
}
