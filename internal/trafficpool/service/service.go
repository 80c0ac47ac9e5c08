// Package service orchestrates the traffic pool engine: scoring, duplicate
// resolution, filtering, ranking and pool membership over the in-memory
// store, with write-through persistence and domain event publication.
package service

import (
	"context"
	"errors"
	"time"

	"trafficpool_backend/internal/events"
	"trafficpool_backend/internal/trafficpool/dedup"
	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/internal/trafficpool/query"
	"trafficpool_backend/internal/trafficpool/repository"
	"trafficpool_backend/internal/trafficpool/scoring"
	"trafficpool_backend/internal/trafficpool/store"
	"trafficpool_backend/platform/apperr"
	"trafficpool_backend/platform/logger"
)

// Service is the traffic pool application service. Read paths never fail:
// they compute over a snapshot and degrade to defaults. Mutations validate
// up front and serialize through the store's writer lock.
type Service struct {
	store *store.Store
	repo  repository.Store
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates the service. repo may be nil in tests; persistence is then
// skipped and the store alone is authoritative.
func New(s *store.Store, repo repository.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store: s,
		repo:  repo,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// QueryResult is a scored, filtered, ranked and paginated view plus the
// total match count before pagination.
type QueryResult struct {
	Items []domain.Lead
	Total int
}

// Query runs the full read pipeline: snapshot, score, dedup-annotate,
// filter, rank, paginate. It never fails; an out-of-range page yields an
// empty item list with the correct total.
func (s *Service) Query(_ context.Context, spec domain.FilterSpec, pageIndex, pageSize int) QueryResult {
	view := s.enriched()
	view = query.Apply(view, spec)
	view = query.Rank(view)

	total := len(view)
	return QueryResult{
		Items: query.Paginate(view, pageIndex, pageSize),
		Total: total,
	}
}

// QueryAll returns the full filtered and ranked view without pagination.
// Exports and background passes use it to walk every match.
func (s *Service) QueryAll(_ context.Context, spec domain.FilterSpec) []domain.Lead {
	view := s.enriched()
	view = query.Apply(view, spec)
	return query.Rank(view)
}

// GetLead returns one lead with a freshly computed score.
func (s *Service) GetLead(_ context.Context, id string) (domain.Lead, error) {
	l, ok := s.store.Get(id)
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	l.Score = scoring.Score(l, s.now())
	return l, nil
}

// RescoreLead recomputes and persists a single lead's score.
func (s *Service) RescoreLead(ctx context.Context, id string) (domain.Lead, error) {
	l, ok := s.store.Get(id)
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}

	l.Score = scoring.Score(l, s.now())
	s.store.ApplyDerived([]domain.Lead{l})
	if s.repo != nil {
		if err := s.repo.SaveDerived(ctx, []domain.Lead{l}, scoring.Version()); err != nil {
			s.log.Error("persist lead score failed", "leadId", id, "error", err)
		}
	}
	return l, nil
}

// Recompute runs a full scoring and dedup pass over the working set,
// writes the derived fields back to the store, persists them and publishes
// ScoresRecomputed. The pass is idempotent and safe to repeat.
func (s *Service) Recompute(ctx context.Context) (int, error) {
	view := s.enriched()
	s.store.ApplyDerived(view)

	if s.repo != nil {
		if err := s.repo.SaveDerived(ctx, view, scoring.Version()); err != nil {
			return 0, err
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ScoresRecomputed{
			BaseEvent: events.NewBaseEvent(),
			Leads:     len(view),
			Version:   scoring.Version(),
		})
	}
	return len(view), nil
}

// enriched snapshots the store and applies the pure derivation pipeline:
// fresh RFM scores, then duplicate annotation.
func (s *Service) enriched() []domain.Lead {
	now := s.now()
	view := s.store.Snapshot()
	for i := range view {
		view[i].Score = scoring.Score(view[i], now)
	}
	return dedup.Resolve(view)
}

// ---- Pool catalog and membership ----

// Pools lists the catalog with derived member counts, Uncategorized last.
func (s *Service) Pools(_ context.Context) []store.PoolView {
	return s.store.Pools()
}

// CreatePool adds a pool to the catalog and persists it.
func (s *Service) CreatePool(ctx context.Context, id, name, description string, tags []string) (domain.Pool, error) {
	if name == "" {
		return domain.Pool{}, apperr.Validation("pool name is required")
	}
	for _, p := range s.store.Pools() {
		if p.Name == name {
			return domain.Pool{}, apperr.Conflict("pool name already in use")
		}
	}

	p := store.NewPool(id, name, description, tags, s.now().UTC())
	if err := s.store.PutPool(p); err != nil {
		return domain.Pool{}, mapDomainErr(err)
	}
	if s.repo != nil {
		if err := s.repo.CreatePool(ctx, p); err != nil {
			s.log.Error("persist pool failed", "poolId", p.ID, "error", err)
			return domain.Pool{}, apperr.Internal("failed to persist pool")
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.PoolCreated{
			BaseEvent: events.NewBaseEvent(),
			PoolID:    p.ID,
			Name:      p.Name,
		})
	}
	return p, nil
}

// AddToPool assigns leads to a pool with at-most-once semantics. The
// result reports added and already-member ids separately. Newly added
// leads are stamped with the acting operator when one is known.
func (s *Service) AddToPool(ctx context.Context, leadIDs []string, poolID, operatorID string) (domain.PoolAssignment, error) {
	result, err := s.store.AddToPool(leadIDs, poolID)
	if err != nil {
		return domain.PoolAssignment{}, mapDomainErr(err)
	}
	s.store.AssignOperator(result.Added, operatorID)

	if s.repo != nil && len(result.Added) > 0 {
		if err := s.repo.AddMembers(ctx, poolID, result.Added); err != nil {
			// Store is authoritative; the membership stands and the row
			// is retried by the next recompute sync.
			s.log.Error("persist pool membership failed", "poolId", poolID, "error", err)
		}
		if operatorID != "" {
			if err := s.repo.AssignOperator(ctx, result.Added, operatorID); err != nil {
				s.log.Error("persist operator assignment failed", "poolId", poolID, "error", err)
			}
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadsPooled{
			BaseEvent:     events.NewBaseEvent(),
			PoolID:        poolID,
			Added:         result.Added,
			AlreadyMember: result.AlreadyMember,
		})
	}
	return result, nil
}

// RemovePool deletes a pool and cascades membership removal. Leads are
// never deleted; members fall back to implicit Uncategorized membership.
func (s *Service) RemovePool(ctx context.Context, poolID string) error {
	if err := s.store.RemovePool(poolID); err != nil {
		return mapDomainErr(err)
	}

	if s.repo != nil {
		if err := s.repo.DeletePool(ctx, poolID); err != nil {
			s.log.Error("persist pool deletion failed", "poolId", poolID, "error", err)
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.PoolRemoved{
			BaseEvent: events.NewBaseEvent(),
			PoolID:    poolID,
		})
	}
	return nil
}

// UpdateStatus transitions a lead's soft lifecycle status and records the
// operator who touched it.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus, operatorID string) error {
	if err := s.store.SetStatus(id, status); err != nil {
		return mapDomainErr(err)
	}
	s.store.AssignOperator([]string{id}, operatorID)

	if s.repo != nil {
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("persist status failed", "leadId", id, "error", err)
		}
		if operatorID != "" {
			if err := s.repo.AssignOperator(ctx, []string{id}, operatorID); err != nil {
				s.log.Error("persist operator assignment failed", "leadId", id, "error", err)
			}
		}
	}
	return nil
}

// mapDomainErr translates the engine's error taxonomy into transport-facing
// typed errors.
func mapDomainErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("unknown lead or pool")
	case errors.Is(err, domain.ErrInvalidTarget):
		return apperr.Validation("target pool does not accept direct assignment")
	case errors.Is(err, domain.ErrForbidden):
		return apperr.Forbidden("system pools cannot be deleted")
	default:
		return err
	}
}
