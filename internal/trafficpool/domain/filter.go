package domain

// Pool filter sentinels. These are distinct from real pool IDs: "all"
// disables the pool constraint, "none" matches leads in no pool.
const (
	PoolFilterAll  = "all"
	PoolFilterNone = "none"
)

// Range is an inclusive numeric interval. A nil *Range means unconstrained.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies inside the interval, both ends inclusive.
func (r *Range) Contains(v int) bool {
	if r == nil {
		return true
	}
	return v >= r.Min && v <= r.Max
}

// FilterSpec is a composable, serializable query over the lead set.
// All predicates combine with logical AND; within a multi-valued predicate
// membership is logical OR. Empty or absent fields mean "no constraint",
// never "exclude all".
type FilterSpec struct {
	Keyword           string       `json:"keyword,omitempty"`
	DeviceIDs         []string     `json:"deviceIds,omitempty"`
	PoolID            string       `json:"poolId,omitempty"`
	Priority          Priority     `json:"priority,omitempty"`
	Statuses          []LeadStatus `json:"statuses,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
	BatteryRange      *Range       `json:"batteryRange,omitempty"`
	FriendCountRange  *Range       `json:"friendCountRange,omitempty"`
	HasActiveCampaign *bool        `json:"hasActiveCampaign,omitempty"`
}

// IsEmpty reports whether the spec constrains nothing, i.e. matches all leads.
func (f FilterSpec) IsEmpty() bool {
	return f.Keyword == "" &&
		len(f.DeviceIDs) == 0 &&
		(f.PoolID == "" || f.PoolID == PoolFilterAll) &&
		f.Priority == "" &&
		len(f.Statuses) == 0 &&
		len(f.Tags) == 0 &&
		f.BatteryRange == nil &&
		f.FriendCountRange == nil &&
		f.HasActiveCampaign == nil
}
