// Package transport defines the traffic pool module's request and response
// DTOs. Handlers bind and validate these; services speak domain types.
package transport

import (
	"time"

	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/internal/trafficpool/store"
)

// RangeRequest is an inclusive numeric interval filter.
type RangeRequest struct {
	Min int `json:"min"`
	Max int `json:"max" validate:"gtefield=Min"`
}

// QueryRequest carries a FilterSpec plus pagination. Zero values mean
// "no constraint"; PageSize defaults server-side when omitted.
type QueryRequest struct {
	Keyword           string        `json:"keyword"`
	DeviceIDs         []string      `json:"deviceIds"`
	PoolID            string        `json:"poolId"`
	Priority          string        `json:"priority" validate:"omitempty,oneof=high medium low"`
	Statuses          []string      `json:"statuses" validate:"dive,oneof=pending contacted converted lost"`
	Tags              []string      `json:"tags"`
	BatteryRange      *RangeRequest `json:"batteryRange"`
	FriendCountRange  *RangeRequest `json:"friendCountRange"`
	HasActiveCampaign *bool         `json:"hasActiveCampaign"`
	PageIndex         int           `json:"pageIndex" validate:"gte=0,lte=1000000"`
	PageSize          int           `json:"pageSize" validate:"gte=0,lte=500"`
}

// ToFilterSpec converts the request into the engine's filter type.
func (r QueryRequest) ToFilterSpec() domain.FilterSpec {
	spec := domain.FilterSpec{
		Keyword:           r.Keyword,
		DeviceIDs:         r.DeviceIDs,
		PoolID:            r.PoolID,
		Priority:          domain.Priority(r.Priority),
		Tags:              r.Tags,
		HasActiveCampaign: r.HasActiveCampaign,
	}
	for _, s := range r.Statuses {
		spec.Statuses = append(spec.Statuses, domain.LeadStatus(s))
	}
	if r.BatteryRange != nil {
		spec.BatteryRange = &domain.Range{Min: r.BatteryRange.Min, Max: r.BatteryRange.Max}
	}
	if r.FriendCountRange != nil {
		spec.FriendCountRange = &domain.Range{Min: r.FriendCountRange.Min, Max: r.FriendCountRange.Max}
	}
	return spec
}

// ScoreResponse mirrors domain.RFMScore for API consumers.
type ScoreResponse struct {
	Recency   int    `json:"recency"`
	Frequency int    `json:"frequency"`
	Monetary  int    `json:"monetary"`
	Total     int    `json:"total"`
	Segment   string `json:"segment"`
	Priority  string `json:"priority"`
}

// LeadResponse is the API view of a lead.
type LeadResponse struct {
	ID                string        `json:"id"`
	DisplayName       string        `json:"displayName"`
	ExternalHandle    string        `json:"externalHandle"`
	Phone             string        `json:"phone,omitempty"`
	CaptureChannel    string        `json:"captureChannel"`
	SourceDeviceID    string        `json:"sourceDeviceId,omitempty"`
	SourceAccountID   string        `json:"sourceAccountId,omitempty"`
	Status            string        `json:"status"`
	Remark            string        `json:"remark,omitempty"`
	FriendCount       int           `json:"friendCount"`
	Battery           int           `json:"battery"`
	HasActiveCampaign bool          `json:"hasActiveCampaign"`
	Score             ScoreResponse `json:"score"`
	Tags              []string      `json:"tags,omitempty"`
	IsDuplicate       bool          `json:"isDuplicate"`
	MergedIdentities  []string      `json:"mergedIdentities,omitempty"`
	PoolIDs           []string      `json:"poolIds,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// QueryResponse is a paginated view plus the pre-pagination total.
type QueryResponse struct {
	Items     []LeadResponse `json:"items"`
	Total     int            `json:"total"`
	PageIndex int            `json:"pageIndex"`
	PageSize  int            `json:"pageSize"`
}

// CreatePoolRequest creates a named pool.
type CreatePoolRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Tags        []string `json:"tags" validate:"max=20,dive,min=1,max=50"`
}

// PoolResponse is the API view of a pool with its derived member count.
type PoolResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	System      bool      `json:"system"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AssignRequest adds a batch of leads to a pool.
type AssignRequest struct {
	LeadIDs []string `json:"leadIds" validate:"required,min=1,dive,required"`
}

// AssignResponse reports per-id outcomes of an assignment batch.
type AssignResponse struct {
	Added         []string `json:"added"`
	AlreadyMember []string `json:"alreadyMember"`
}

// PassResponse acknowledges an enqueued background engine pass.
type PassResponse struct {
	Pass  string `json:"pass"`
	State string `json:"state"`
}

// UpdateStatusRequest transitions a lead's lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending contacted converted lost"`
}

// ToLeadResponse maps a domain lead to its API view.
func ToLeadResponse(l domain.Lead) LeadResponse {
	return LeadResponse{
		ID:                l.ID,
		DisplayName:       l.DisplayName,
		ExternalHandle:    l.ExternalHandle,
		Phone:             l.Phone,
		CaptureChannel:    string(l.CaptureChannel),
		SourceDeviceID:    l.SourceDeviceID,
		SourceAccountID:   l.SourceAccountID,
		Status:            string(l.Status),
		Remark:            l.Remark,
		FriendCount:       l.FriendCount,
		Battery:           l.Battery,
		HasActiveCampaign: l.HasActiveCampaign,
		Score: ScoreResponse{
			Recency:   l.Score.Recency,
			Frequency: l.Score.Frequency,
			Monetary:  l.Score.Monetary,
			Total:     l.Score.Total,
			Segment:   l.Score.Segment,
			Priority:  string(l.Score.Priority),
		},
		Tags:             l.Tags,
		IsDuplicate:      l.IsDuplicate,
		MergedIdentities: l.MergedIdentities,
		PoolIDs:          l.PoolIDs,
		CreatedAt:        l.CreatedAt,
	}
}

// ToLeadResponses maps a view, preserving order.
func ToLeadResponses(leads []domain.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, ToLeadResponse(l))
	}
	return out
}

// ToPoolResponse maps a pool view to its API shape.
func ToPoolResponse(p store.PoolView) PoolResponse {
	return PoolResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Tags:        p.Tags,
		System:      p.System,
		MemberCount: p.MemberCount,
		CreatedAt:   p.CreatedAt,
	}
}
