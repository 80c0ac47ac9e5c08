// Package transport defines the capture module's request and response DTOs.
package transport

import (
	"time"

	"trafficpool_backend/internal/capture/service"
	"trafficpool_backend/internal/trafficpool/domain"
)

// InteractionRequest is one behavioral event attached to a captured lead.
type InteractionRequest struct {
	Type        string    `json:"type" validate:"required,oneof=message purchase view click"`
	Timestamp   time.Time `json:"timestamp" validate:"required"`
	AmountCents int64     `json:"amountCents" validate:"gte=0"`
}

// CapturedLeadRequest is a single inbound record in a capture batch.
type CapturedLeadRequest struct {
	DisplayName       string               `json:"displayName" validate:"required,min=1,max=200"`
	ExternalHandle    string               `json:"externalHandle" validate:"max=200"`
	Phone             string               `json:"phone" validate:"max=32"`
	SourceDeviceID    string               `json:"sourceDeviceId" validate:"max=100"`
	SourceAccountID   string               `json:"sourceAccountId" validate:"max=100"`
	Remark            string               `json:"remark" validate:"max=500"`
	Tags              []string             `json:"tags" validate:"max=20,dive,min=1,max=50"`
	FriendCount       int                  `json:"friendCount" validate:"gte=0"`
	Battery           int                  `json:"battery" validate:"gte=0,lte=100"`
	HasActiveCampaign bool                 `json:"hasActiveCampaign"`
	Interactions      []InteractionRequest `json:"interactions" validate:"dive"`
}

// IngestRequest is a capture batch delivery. EventID, when set, makes the
// delivery idempotent within the dedupe window.
type IngestRequest struct {
	EventID string                `json:"eventId" validate:"max=128"`
	Channel string                `json:"channel" validate:"required"`
	Leads   []CapturedLeadRequest `json:"leads" validate:"required,min=1,max=500,dive"`
}

// ToCapturedLeads converts the batch into the service's input type.
func (r IngestRequest) ToCapturedLeads() []service.CapturedLead {
	out := make([]service.CapturedLead, 0, len(r.Leads))
	for _, item := range r.Leads {
		lead := service.CapturedLead{
			DisplayName:       item.DisplayName,
			ExternalHandle:    item.ExternalHandle,
			Phone:             item.Phone,
			SourceDeviceID:    item.SourceDeviceID,
			SourceAccountID:   item.SourceAccountID,
			Remark:            item.Remark,
			Tags:              item.Tags,
			FriendCount:       item.FriendCount,
			Battery:           item.Battery,
			HasActiveCampaign: item.HasActiveCampaign,
		}
		for _, it := range item.Interactions {
			lead.Interactions = append(lead.Interactions, domain.Interaction{
				Type:        domain.InteractionType(it.Type),
				Timestamp:   it.Timestamp,
				AmountCents: it.AmountCents,
			})
		}
		out = append(out, lead)
	}
	return out
}

// IngestResponse reports the outcome of a capture batch.
type IngestResponse struct {
	LeadIDs  []string `json:"leadIds"`
	Replayed bool     `json:"replayed"`
}
