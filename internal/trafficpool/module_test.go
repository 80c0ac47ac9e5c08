package trafficpool

import (
	"context"
	"testing"
	"time"

	"trafficpool_backend/internal/events"
	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/internal/trafficpool/service"
	"trafficpool_backend/internal/trafficpool/store"
	"trafficpool_backend/platform/logger"
)

// recordingRepo captures the context handed to SaveDerived so tests can
// inspect its cancellation state.
type recordingRepo struct {
	saveCtx context.Context
}

func (r *recordingRepo) LoadLeads(context.Context) ([]domain.Lead, error) { return nil, nil }
func (r *recordingRepo) LoadPools(context.Context) ([]domain.Pool, error) { return nil, nil }
func (r *recordingRepo) UpsertLeads(context.Context, []domain.Lead) error { return nil }
func (r *recordingRepo) SaveDerived(ctx context.Context, _ []domain.Lead, _ string) error {
	r.saveCtx = ctx
	return nil
}
func (r *recordingRepo) UpdateStatus(context.Context, string, domain.LeadStatus) error { return nil }
func (r *recordingRepo) AssignOperator(context.Context, []string, string) error        { return nil }
func (r *recordingRepo) CreatePool(context.Context, domain.Pool) error                 { return nil }
func (r *recordingRepo) AddMembers(context.Context, string, []string) error            { return nil }
func (r *recordingRepo) DeletePool(context.Context, string) error                      { return nil }

func TestRegisterHandlers_RecomputeOutlivesRequestContext(t *testing.T) {
	log := logger.New("development")
	s := store.New()
	s.UpsertLeads([]domain.Lead{{
		ID: "u1", DisplayName: "Chen Wei", CaptureChannel: domain.ChannelPoster,
		Status: domain.StatusPending, CreatedAt: time.Now().UTC(),
	}})

	repo := &recordingRepo{}
	m := &Module{service: service.New(s, repo, nil, log)}

	bus := events.NewInMemoryBus(log)
	m.RegisterHandlers(bus, log)

	// The ingest request that published the event is already done by the
	// time the pass persists, so dispatch with a canceled context.
	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := bus.PublishSync(reqCtx, events.LeadsCaptured{
		BaseEvent: events.NewBaseEvent(),
		EventID:   "evt-1",
		LeadIDs:   []string{"u1"},
		Channel:   string(domain.ChannelPoster),
	}); err != nil {
		t.Fatalf("recompute after capture: unexpected error: %v", err)
	}

	if repo.saveCtx == nil {
		t.Fatal("expected SaveDerived to be called")
	}
	if err := repo.saveCtx.Err(); err != nil {
		t.Fatalf("persistence context must survive request cancellation, got %v", err)
	}
}
