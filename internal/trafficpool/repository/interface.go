package repository

import (
	"context"

	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/internal/trafficpool/store"
)

// Segregated interfaces: consumers depend only on the slice they use.

// LeadLoader hydrates the in-memory working set at boot and in the
// background worker.
type LeadLoader interface {
	LoadLeads(ctx context.Context) ([]domain.Lead, error)
	LoadPools(ctx context.Context) ([]domain.Pool, error)
}

// LeadWriter persists captured leads and their interaction history.
type LeadWriter interface {
	UpsertLeads(ctx context.Context, leads []domain.Lead) error
	SaveDerived(ctx context.Context, leads []domain.Lead, scoreVersion string) error
	UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error
	AssignOperator(ctx context.Context, leadIDs []string, operatorID string) error
}

// PoolWriter persists pool catalog and membership mutations.
type PoolWriter interface {
	CreatePool(ctx context.Context, p domain.Pool) error
	AddMembers(ctx context.Context, poolID string, leadIDs []string) error
	DeletePool(ctx context.Context, poolID string) error
}

// Store is the full persistence surface of the traffic pool context.
type Store interface {
	LeadLoader
	LeadWriter
	PoolWriter
}

// Hydrate loads all persisted leads and pools into the in-memory store.
func Hydrate(ctx context.Context, loader LeadLoader, s *store.Store) error {
	pools, err := loader.LoadPools(ctx)
	if err != nil {
		return err
	}
	for _, p := range pools {
		if err := s.PutPool(p); err != nil {
			return err
		}
	}

	leads, err := loader.LoadLeads(ctx)
	if err != nil {
		return err
	}
	s.UpsertLeads(leads)
	return nil
}
