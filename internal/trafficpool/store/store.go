// Package store holds the canonical working set of leads and the pool
// catalog. It is the only component that mutates lead records; everything
// else works with snapshots. Reads take a shared lock and copy; mutations
// serialize under the write lock, which gives the single-writer discipline
// the engine requires when embedded in a concurrent host.
package store

import (
	"sort"
	"sync"
	"time"

	"trafficpool_backend/internal/trafficpool/domain"
)

// Store is the in-memory lead record store and pool catalog.
type Store struct {
	mu    sync.RWMutex
	leads map[string]*domain.Lead
	order []string // insertion order, kept stable for deterministic views
	pools map[string]*domain.Pool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		leads: map[string]*domain.Lead{},
		pools: map[string]*domain.Pool{},
	}
}

// UpsertLeads inserts or replaces leads. New leads keep their ingestion
// order; replacing an existing lead preserves its position.
func (s *Store) UpsertLeads(leads []domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range leads {
		clone := l.Clone()
		if _, exists := s.leads[l.ID]; !exists {
			s.order = append(s.order, l.ID)
		}
		s.leads[l.ID] = &clone
	}
}

// Snapshot returns a deep copy of all leads in insertion order. Callers
// own the result; it never aliases store state.
func (s *Store) Snapshot() []domain.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Lead, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.leads[id].Clone())
	}
	return out
}

// Get returns a copy of one lead.
func (s *Store) Get(id string) (domain.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, false
	}
	return l.Clone(), true
}

// Len returns the number of leads in the working set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads)
}

// ApplyDerived writes recomputed derived fields (score, duplicate flags,
// cross-references) back onto the canonical records. Unknown ids are
// ignored: a recompute pass may race a concurrent ingest, and derived
// state for records it never saw is simply left for the next pass.
func (s *Store) ApplyDerived(leads []domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range leads {
		cur, ok := s.leads[l.ID]
		if !ok {
			continue
		}
		cur.Score = l.Score
		cur.IsDuplicate = l.IsDuplicate
		cur.MergedIdentities = append([]string(nil), l.MergedIdentities...)
	}
}

// AssignOperator stamps the acting operator on the given leads. Unknown
// ids are ignored, same as ApplyDerived.
func (s *Store) AssignOperator(leadIDs []string, operatorID string) {
	if operatorID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range leadIDs {
		if l, ok := s.leads[id]; ok {
			l.AssignedOperatorID = operatorID
		}
	}
}

// SetStatus transitions a lead's soft lifecycle status.
func (s *Store) SetStatus(id string, status domain.LeadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Status = status
	return nil
}

// ---- Pool catalog ----

// PutPool inserts or replaces a pool definition. Used for hydration and
// creation; the Uncategorized pool is computed and never stored.
func (s *Store) PutPool(p domain.Pool) error {
	if p.ID == domain.UncategorizedPoolID {
		return domain.ErrInvalidTarget
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := p
	clone.Tags = append([]string(nil), p.Tags...)
	s.pools[p.ID] = &clone
	return nil
}

// GetPool returns a copy of one pool definition.
func (s *Store) GetPool(id string) (domain.Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[id]
	if !ok {
		return domain.Pool{}, false
	}
	return *p, true
}

// PoolView is a pool definition plus its derived member count.
type PoolView struct {
	domain.Pool
	MemberCount int `json:"memberCount"`
}

// Pools lists all pools with derived member counts, ordered by creation
// time then id, with the computed Uncategorized pool appended last. Member
// counts are always counted from lead membership, never stored.
func (s *Store) Pools() []PoolView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	uncategorized := 0
	for _, l := range s.leads {
		if len(l.PoolIDs) == 0 {
			uncategorized++
			continue
		}
		for _, pid := range l.PoolIDs {
			counts[pid]++
		}
	}

	out := make([]PoolView, 0, len(s.pools)+1)
	for _, p := range s.pools {
		out = append(out, PoolView{Pool: *p, MemberCount: counts[p.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	out = append(out, PoolView{
		Pool: domain.Pool{
			ID:     domain.UncategorizedPoolID,
			Name:   "Uncategorized",
			System: true,
		},
		MemberCount: uncategorized,
	})
	return out
}

// AddToPool assigns the given leads to a pool. The operation is idempotent
// per lead: already-member leads are reported separately, not treated as
// errors. Validation runs up front against a single consistent snapshot
// and the whole batch fails atomically on an unknown pool or lead id.
func (s *Store) AddToPool(leadIDs []string, poolID string) (domain.PoolAssignment, error) {
	if poolID == domain.UncategorizedPoolID || poolID == domain.PoolFilterNone || poolID == domain.PoolFilterAll {
		return domain.PoolAssignment{}, domain.ErrInvalidTarget
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[poolID]; !ok {
		return domain.PoolAssignment{}, domain.ErrNotFound
	}
	for _, id := range leadIDs {
		if _, ok := s.leads[id]; !ok {
			return domain.PoolAssignment{}, domain.ErrNotFound
		}
	}

	result := domain.PoolAssignment{Added: []string{}, AlreadyMember: []string{}}
	seen := map[string]struct{}{}
	for _, id := range leadIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		l := s.leads[id]
		if l.InPool(poolID) {
			result.AlreadyMember = append(result.AlreadyMember, id)
			continue
		}
		l.PoolIDs = append(l.PoolIDs, poolID)
		result.Added = append(result.Added, id)
	}

	sort.Strings(result.Added)
	sort.Strings(result.AlreadyMember)
	return result, nil
}

// RemovePool deletes a pool and cascades the membership removal: every
// lead referencing it drops the reference, falling back to implicit
// Uncategorized membership when no real pool remains. Leads themselves are
// never deleted. System pools are not deletable.
func (s *Store) RemovePool(poolID string) error {
	if poolID == domain.UncategorizedPoolID {
		return domain.ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[poolID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.System {
		return domain.ErrForbidden
	}

	delete(s.pools, poolID)
	for _, l := range s.leads {
		l.PoolIDs = removeString(l.PoolIDs, poolID)
	}
	return nil
}

// NewPool builds a pool definition with the catalog's invariants applied.
func NewPool(id, name, description string, tags []string, createdAt time.Time) domain.Pool {
	return domain.Pool{
		ID:          id,
		Name:        name,
		Description: description,
		Tags:        append([]string(nil), tags...),
		CreatedAt:   createdAt,
	}
}

func removeString(in []string, target string) []string {
	out := in[:0]
	for _, s := range in {
		if s != target {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
