package query

import (
	"math"
	"reflect"
	"testing"

	"trafficpool_backend/internal/trafficpool/domain"
)

func boolPtr(b bool) *bool { return &b }

func sampleLeads() []domain.Lead {
	return []domain.Lead{
		{
			ID: "u1", DisplayName: "Chen Wei", ExternalHandle: "wx_chen", Phone: "+8613800138000",
			SourceDeviceID: "dev-1", Status: domain.StatusPending, Battery: 80, FriendCount: 120,
			Tags: []string{"vip"}, PoolIDs: []string{"pool-a"},
			Score: domain.RFMScore{Recency: 5, Priority: domain.PriorityHigh},
		},
		{
			ID: "u2", DisplayName: "Li Na", ExternalHandle: "wx_lina", Remark: "poster scan",
			SourceDeviceID: "dev-2", Status: domain.StatusContacted, Battery: 15, FriendCount: 40,
			HasActiveCampaign: true,
			Score:             domain.RFMScore{Recency: 3, Priority: domain.PriorityMedium},
		},
		{
			ID: "u3", DisplayName: "Zhang Min", ExternalHandle: "wx_zhang",
			SourceDeviceID: "dev-1", Status: domain.StatusLost, Battery: 55, FriendCount: 500,
			Score: domain.RFMScore{Recency: 1, Priority: domain.PriorityLow},
		},
	}
}

func ids(view []domain.Lead) []string {
	out := make([]string, 0, len(view))
	for _, l := range view {
		out = append(out, l.ID)
	}
	return out
}

func TestApply_EmptySpecMatchesEverything(t *testing.T) {
	leads := sampleLeads()
	out := Apply(leads, domain.FilterSpec{})

	if !reflect.DeepEqual(ids(out), []string{"u1", "u2", "u3"}) {
		t.Fatalf("empty spec must return the full set in order, got %v", ids(out))
	}
}

func TestApply_PredicatesCombineWithAND(t *testing.T) {
	leads := sampleLeads()

	// Device dev-1 alone matches u1 and u3; adding a status narrows to u1.
	out := Apply(leads, domain.FilterSpec{DeviceIDs: []string{"dev-1"}})
	if !reflect.DeepEqual(ids(out), []string{"u1", "u3"}) {
		t.Fatalf("device filter: expected [u1 u3], got %v", ids(out))
	}

	out = Apply(leads, domain.FilterSpec{
		DeviceIDs: []string{"dev-1"},
		Statuses:  []domain.LeadStatus{domain.StatusPending},
	})
	if !reflect.DeepEqual(ids(out), []string{"u1"}) {
		t.Fatalf("device AND status: expected [u1], got %v", ids(out))
	}
}

func TestApply_MultiValuedPredicatesAreORWithin(t *testing.T) {
	leads := sampleLeads()
	out := Apply(leads, domain.FilterSpec{
		Statuses: []domain.LeadStatus{domain.StatusPending, domain.StatusLost},
	})
	if !reflect.DeepEqual(ids(out), []string{"u1", "u3"}) {
		t.Fatalf("expected [u1 u3], got %v", ids(out))
	}
}

func TestApply_KeywordSearchesNameHandlePhoneRemark(t *testing.T) {
	leads := sampleLeads()

	cases := []struct {
		keyword string
		want    []string
	}{
		{"chen", []string{"u1"}},          // display name, case-folded
		{"WX_LINA", []string{"u2"}},       // handle, case-folded
		{"13800138000", []string{"u1"}},   // phone substring
		{"poster scan", []string{"u2"}},   // remark
		{"no-such-lead", []string{}},
	}

	for _, tc := range cases {
		out := Apply(leads, domain.FilterSpec{Keyword: tc.keyword})
		if !reflect.DeepEqual(ids(out), tc.want) {
			t.Fatalf("keyword %q: expected %v, got %v", tc.keyword, tc.want, ids(out))
		}
	}
}

func TestApply_PoolSentinels(t *testing.T) {
	leads := sampleLeads()

	all := Apply(leads, domain.FilterSpec{PoolID: domain.PoolFilterAll})
	if len(all) != 3 {
		t.Fatalf("pool 'all' must disable the constraint, got %d leads", len(all))
	}

	none := Apply(leads, domain.FilterSpec{PoolID: domain.PoolFilterNone})
	if !reflect.DeepEqual(ids(none), []string{"u2", "u3"}) {
		t.Fatalf("pool 'none' must match unpooled leads, got %v", ids(none))
	}

	uncat := Apply(leads, domain.FilterSpec{PoolID: domain.UncategorizedPoolID})
	if !reflect.DeepEqual(ids(uncat), ids(none)) {
		t.Fatalf("uncategorized must behave like 'none', got %v", ids(uncat))
	}

	member := Apply(leads, domain.FilterSpec{PoolID: "pool-a"})
	if !reflect.DeepEqual(ids(member), []string{"u1"}) {
		t.Fatalf("concrete pool id must test membership, got %v", ids(member))
	}
}

func TestApply_RangesAreInclusive(t *testing.T) {
	leads := sampleLeads()

	out := Apply(leads, domain.FilterSpec{BatteryRange: &domain.Range{Min: 15, Max: 55}})
	if !reflect.DeepEqual(ids(out), []string{"u2", "u3"}) {
		t.Fatalf("battery [15,55]: expected [u2 u3], got %v", ids(out))
	}

	out = Apply(leads, domain.FilterSpec{FriendCountRange: &domain.Range{Min: 500, Max: 500}})
	if !reflect.DeepEqual(ids(out), []string{"u3"}) {
		t.Fatalf("friend count [500,500]: expected [u3], got %v", ids(out))
	}
}

func TestApply_CampaignFlagFiltersBothWays(t *testing.T) {
	leads := sampleLeads()

	active := Apply(leads, domain.FilterSpec{HasActiveCampaign: boolPtr(true)})
	if !reflect.DeepEqual(ids(active), []string{"u2"}) {
		t.Fatalf("expected [u2], got %v", ids(active))
	}

	inactive := Apply(leads, domain.FilterSpec{HasActiveCampaign: boolPtr(false)})
	if !reflect.DeepEqual(ids(inactive), []string{"u1", "u3"}) {
		t.Fatalf("expected [u1 u3], got %v", ids(inactive))
	}
}

func TestRank_OrdersByPriorityThenRecencyThenID(t *testing.T) {
	view := []domain.Lead{
		{ID: "b", Score: domain.RFMScore{Recency: 2, Priority: domain.PriorityMedium}},
		{ID: "a", Score: domain.RFMScore{Recency: 2, Priority: domain.PriorityMedium}},
		{ID: "c", Score: domain.RFMScore{Recency: 5, Priority: domain.PriorityLow}},
		{ID: "d", Score: domain.RFMScore{Recency: 1, Priority: domain.PriorityHigh}},
		{ID: "e", Score: domain.RFMScore{Recency: 4, Priority: domain.PriorityMedium}},
	}

	out := Rank(view)
	want := []string{"d", "e", "a", "b", "c"}
	if !reflect.DeepEqual(ids(out), want) {
		t.Fatalf("expected %v, got %v", want, ids(out))
	}

	// Ranking the same view again yields the identical order.
	again := Rank(view)
	if !reflect.DeepEqual(ids(out), ids(again)) {
		t.Fatalf("rank is not deterministic: %v vs %v", ids(out), ids(again))
	}
}

func TestPaginate_SlicesStableView(t *testing.T) {
	view := sampleLeads()

	page0 := Paginate(view, 0, 2)
	if !reflect.DeepEqual(ids(page0), []string{"u1", "u2"}) {
		t.Fatalf("page 0: expected [u1 u2], got %v", ids(page0))
	}

	page1 := Paginate(view, 1, 2)
	if !reflect.DeepEqual(ids(page1), []string{"u3"}) {
		t.Fatalf("page 1: expected [u3], got %v", ids(page1))
	}
}

func TestPaginate_OutOfRangeYieldsEmptyNotError(t *testing.T) {
	view := sampleLeads()

	if out := Paginate(view, 5, 10); len(out) != 0 {
		t.Fatalf("out-of-range page must be empty, got %v", ids(out))
	}
	if out := Paginate(view, -1, 10); len(out) != 0 {
		t.Fatalf("negative page must be empty, got %v", ids(out))
	}
	if out := Paginate(view, 0, 0); len(out) != 0 {
		t.Fatalf("zero page size must be empty, got %v", ids(out))
	}
}

func TestPaginate_HugePageIndexDoesNotOverflow(t *testing.T) {
	view := sampleLeads()

	// Indexes whose product with the page size would wrap negative must
	// still resolve to an empty page rather than panic.
	for _, idx := range []int{math.MaxInt / 10, math.MaxInt/10 + 1, math.MaxInt} {
		if out := Paginate(view, idx, 10); len(out) != 0 {
			t.Fatalf("page index %d: expected empty page, got %v", idx, ids(out))
		}
	}
}
