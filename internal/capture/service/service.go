// Package service implements lead capture: device-sourced batches are
// normalized, deduplicated per delivery, written to the working set and
// persisted write-through.
package service

import (
	"context"
	"strings"
	"time"

	"trafficpool_backend/internal/events"
	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/internal/trafficpool/repository"
	"trafficpool_backend/internal/trafficpool/store"
	"trafficpool_backend/platform/apperr"
	"trafficpool_backend/platform/logger"
	"trafficpool_backend/platform/phone"

	"github.com/google/uuid"
)

// CapturedLead is a single inbound record from a capture surface, before
// normalization.
type CapturedLead struct {
	DisplayName       string
	ExternalHandle    string
	Phone             string
	SourceDeviceID    string
	SourceAccountID   string
	Remark            string
	Tags              []string
	FriendCount       int
	Battery           int
	HasActiveCampaign bool
	Interactions      []domain.Interaction
}

// IngestResult reports what happened to a capture batch.
type IngestResult struct {
	// LeadIDs are the ids assigned to the accepted records, in input order.
	LeadIDs []string
	// Replayed is true when the batch's event id was already claimed and the
	// delivery was dropped without side effects.
	Replayed bool
}

// Service is the capture application service.
type Service struct {
	store  *store.Store
	writer repository.LeadWriter
	guard  IdempotencyGuard
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

// New creates the capture service. writer and guard may be nil in tests;
// persistence and delivery dedup are then skipped.
func New(s *store.Store, writer repository.LeadWriter, guard IdempotencyGuard, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:  s,
		writer: writer,
		guard:  guard,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

// Ingest accepts a capture batch. A non-empty eventID makes the delivery
// idempotent: replays within the dedupe window return Replayed without
// touching the store.
func (s *Service) Ingest(ctx context.Context, eventID string, channel domain.CaptureChannel, items []CapturedLead) (IngestResult, error) {
	if !domain.IsKnownChannel(channel) {
		return IngestResult{}, apperr.Validation("unknown capture channel")
	}
	if len(items) == 0 {
		return IngestResult{}, apperr.Validation("capture batch is empty")
	}

	if eventID != "" && s.guard != nil {
		first, err := s.guard.FirstDelivery(ctx, eventID)
		if err != nil {
			// The guard is advisory; ingest proceeds when redis is down.
			s.log.Warn("ingest dedupe check failed", "eventId", eventID, "error", err)
		} else if !first {
			s.log.Info("ingest replay dropped", "eventId", eventID, "channel", string(channel))
			return IngestResult{Replayed: true}, nil
		}
	}

	now := s.now().UTC()
	leads := make([]domain.Lead, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		l := s.buildLead(item, channel, now)
		leads = append(leads, l)
		ids = append(ids, l.ID)
	}

	s.store.UpsertLeads(leads)
	if s.writer != nil {
		if err := s.writer.UpsertLeads(ctx, leads); err != nil {
			// Store is authoritative; rows are reconciled by the next
			// recompute sync.
			s.log.Error("persist captured leads failed", "count", len(leads), "error", err)
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadsCaptured{
			BaseEvent: events.NewBaseEvent(),
			EventID:   eventID,
			LeadIDs:   ids,
			Channel:   string(channel),
		})
	}

	s.log.Info("capture batch ingested", "channel", string(channel), "leads", len(ids))
	return IngestResult{LeadIDs: ids}, nil
}

func (s *Service) buildLead(item CapturedLead, channel domain.CaptureChannel, now time.Time) domain.Lead {
	return domain.Lead{
		ID:                uuid.NewString(),
		DisplayName:       strings.TrimSpace(item.DisplayName),
		ExternalHandle:    strings.TrimSpace(item.ExternalHandle),
		Phone:             phone.NormalizeE164(item.Phone),
		CaptureChannel:    channel,
		SourceDeviceID:    strings.TrimSpace(item.SourceDeviceID),
		SourceAccountID:   strings.TrimSpace(item.SourceAccountID),
		Status:            domain.StatusPending,
		Remark:            strings.TrimSpace(item.Remark),
		FriendCount:       item.FriendCount,
		Battery:           item.Battery,
		HasActiveCampaign: item.HasActiveCampaign,
		Tags:              item.Tags,
		Interactions:      item.Interactions,
		CreatedAt:         now,
	}
}
