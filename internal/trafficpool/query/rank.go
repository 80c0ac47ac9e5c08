package query

import (
	"sort"

	"trafficpool_backend/internal/trafficpool/domain"
)

// Rank orders a view by business priority: priority tier first, then
// recency band descending, then id ascending as the final tie-break. The
// sort is stable and fully deterministic, which pagination relies on:
// page N always contains the same items for the same filter and data.
func Rank(view []domain.Lead) []domain.Lead {
	out := make([]domain.Lead, len(view))
	copy(out, view)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if pa, pb := a.Score.Priority.Rank(), b.Score.Priority.Rank(); pa != pb {
			return pa > pb
		}
		if a.Score.Recency != b.Score.Recency {
			return a.Score.Recency > b.Score.Recency
		}
		return a.ID < b.ID
	})

	return out
}
