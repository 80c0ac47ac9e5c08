// Package query implements the read side of the traffic pool: filtering,
// keyword search, ranking and pagination. Every function here is a pure
// transform over a snapshot; nothing mutates the lead record store and
// repeated calls with identical inputs produce identical output.
package query

import (
	"strings"

	"trafficpool_backend/internal/trafficpool/domain"
)

// Apply returns the ordered subset of leads matching the spec. Predicates
// combine with AND; multi-valued predicates are OR within themselves. The
// input order is preserved, so the result is order-stable.
func Apply(leads []domain.Lead, spec domain.FilterSpec) []domain.Lead {
	out := make([]domain.Lead, 0, len(leads))
	for _, l := range leads {
		if matches(&l, spec) {
			out = append(out, l)
		}
	}
	return out
}

// Paginate slices a view after filtering and ranking. pageIndex is
// zero-based. Out-of-range pages yield an empty view, never an error.
func Paginate(view []domain.Lead, pageIndex, pageSize int) []domain.Lead {
	if pageIndex < 0 || pageSize <= 0 {
		return []domain.Lead{}
	}

	// Compare before multiplying: pageIndex*pageSize can wrap negative for
	// huge indexes, which would slip past a start >= len(view) check.
	if pageIndex > len(view)/pageSize {
		return []domain.Lead{}
	}

	start := pageIndex * pageSize
	if start >= len(view) {
		return []domain.Lead{}
	}

	end := start + pageSize
	if end > len(view) {
		end = len(view)
	}
	return view[start:end]
}

func matches(l *domain.Lead, spec domain.FilterSpec) bool {
	if !matchesKeyword(l, spec.Keyword) {
		return false
	}
	if !matchesPool(l, spec.PoolID) {
		return false
	}
	if len(spec.DeviceIDs) > 0 && !containsString(spec.DeviceIDs, l.SourceDeviceID) {
		return false
	}
	if spec.Priority != "" && l.Score.Priority != spec.Priority {
		return false
	}
	if len(spec.Statuses) > 0 && !containsStatus(spec.Statuses, l.Status) {
		return false
	}
	if len(spec.Tags) > 0 && !hasAnyTag(l, spec.Tags) {
		return false
	}
	if !spec.BatteryRange.Contains(l.Battery) {
		return false
	}
	if !spec.FriendCountRange.Contains(l.FriendCount) {
		return false
	}
	if spec.HasActiveCampaign != nil && l.HasActiveCampaign != *spec.HasActiveCampaign {
		return false
	}
	return true
}

// matchesKeyword searches name, external handle, phone and remark
// case-insensitively. An empty keyword matches everything.
func matchesKeyword(l *domain.Lead, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.DisplayName), kw) ||
		strings.Contains(strings.ToLower(l.ExternalHandle), kw) ||
		strings.Contains(l.Phone, kw) ||
		strings.Contains(strings.ToLower(l.Remark), kw)
}

// matchesPool distinguishes the "all" and "none" sentinels from real pool
// ids. "all" (or absent) disables the constraint, "none" matches leads in
// no pool, anything else is a concrete pool membership test.
func matchesPool(l *domain.Lead, poolID string) bool {
	switch poolID {
	case "", domain.PoolFilterAll:
		return true
	case domain.PoolFilterNone, domain.UncategorizedPoolID:
		return len(l.PoolIDs) == 0
	default:
		return l.InPool(poolID)
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsStatus(statuses []domain.LeadStatus, status domain.LeadStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func hasAnyTag(l *domain.Lead, tags []string) bool {
	for _, t := range tags {
		if l.HasTag(t) {
			return true
		}
	}
	return false
}
