package domain

// Priority buckets a segment for ranking and bulk action targeting.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// rank orders priorities for sorting; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// RFMScore is a value type: recomputed as a whole, never partially mutated.
// Recency, Frequency and Monetary are bands in [1,5]; Total, Segment and
// Priority are pure functions of the triple.
type RFMScore struct {
	Recency   int      `json:"recency"`
	Frequency int      `json:"frequency"`
	Monetary  int      `json:"monetary"`
	Total     int      `json:"total"`
	Segment   string   `json:"segment"`
	Priority  Priority `json:"priority"`
}
