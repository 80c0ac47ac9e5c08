// Package repository persists the traffic pool working set in Postgres.
// The engine never touches the database on its hot paths: leads and pools
// are loaded into the in-memory store at boot, and mutations write through
// after the store has accepted them.
package repository

import (
	"context"
	"time"

	"trafficpool_backend/internal/trafficpool/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed persistence layer.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a repository on the given connection pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadLeads reads every lead with its interaction history and pool
// membership, ordered by creation time then id for a stable working set.
func (r *Repository) LoadLeads(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, external_handle, phone, capture_channel,
			source_device_id, source_account_id, assigned_operator_id,
			status, remark, friend_count, battery, has_active_campaign,
			tags, is_duplicate, merged_identities, created_at
		FROM leads
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	byID := map[string]int{}
	for rows.Next() {
		var l domain.Lead
		var channel, status string
		if err := rows.Scan(
			&l.ID, &l.DisplayName, &l.ExternalHandle, &l.Phone, &channel,
			&l.SourceDeviceID, &l.SourceAccountID, &l.AssignedOperatorID,
			&status, &l.Remark, &l.FriendCount, &l.Battery, &l.HasActiveCampaign,
			&l.Tags, &l.IsDuplicate, &l.MergedIdentities, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		l.CaptureChannel = domain.CaptureChannel(channel)
		l.Status = domain.LeadStatus(status)
		byID[l.ID] = len(leads)
		leads = append(leads, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := r.attachInteractions(ctx, leads, byID); err != nil {
		return nil, err
	}
	if err := r.attachMemberships(ctx, leads, byID); err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *Repository) attachInteractions(ctx context.Context, leads []domain.Lead, byID map[string]int) error {
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id, interaction_type, occurred_at, amount_cents
		FROM lead_interactions
		ORDER BY occurred_at ASC, id ASC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var leadID, itype string
		var it domain.Interaction
		if err := rows.Scan(&leadID, &itype, &it.Timestamp, &it.AmountCents); err != nil {
			return err
		}
		it.Type = domain.InteractionType(itype)
		if i, ok := byID[leadID]; ok {
			leads[i].Interactions = append(leads[i].Interactions, it)
		}
	}
	return rows.Err()
}

func (r *Repository) attachMemberships(ctx context.Context, leads []domain.Lead, byID map[string]int) error {
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id, pool_id
		FROM pool_members
		ORDER BY pool_id ASC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var leadID, poolID string
		if err := rows.Scan(&leadID, &poolID); err != nil {
			return err
		}
		if i, ok := byID[leadID]; ok {
			leads[i].PoolIDs = append(leads[i].PoolIDs, poolID)
		}
	}
	return rows.Err()
}

// LoadPools reads the pool catalog. The Uncategorized pool is computed,
// never persisted, so it does not appear here.
func (r *Repository) LoadPools(ctx context.Context) ([]domain.Pool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, tags, is_system, created_at
		FROM pools
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pools := make([]domain.Pool, 0)
	for rows.Next() {
		var p domain.Pool
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Tags, &p.System, &p.CreatedAt); err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// UpsertLeads writes captured leads and replaces their interaction history
// in one transaction.
func (r *Repository) UpsertLeads(ctx context.Context, leads []domain.Lead) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, l := range leads {
			if _, err := tx.Exec(ctx, `
				INSERT INTO leads (
					id, display_name, external_handle, phone, capture_channel,
					source_device_id, source_account_id, assigned_operator_id,
					status, remark, friend_count, battery, has_active_campaign,
					tags, is_duplicate, merged_identities, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
				ON CONFLICT (id) DO UPDATE SET
					display_name = EXCLUDED.display_name,
					external_handle = EXCLUDED.external_handle,
					phone = EXCLUDED.phone,
					status = EXCLUDED.status,
					remark = EXCLUDED.remark,
					friend_count = EXCLUDED.friend_count,
					battery = EXCLUDED.battery,
					has_active_campaign = EXCLUDED.has_active_campaign,
					tags = EXCLUDED.tags,
					updated_at = now()
			`,
				l.ID, l.DisplayName, l.ExternalHandle, l.Phone, string(l.CaptureChannel),
				l.SourceDeviceID, l.SourceAccountID, l.AssignedOperatorID,
				string(l.Status), l.Remark, l.FriendCount, l.Battery, l.HasActiveCampaign,
				l.Tags, l.IsDuplicate, l.MergedIdentities, l.CreatedAt,
			); err != nil {
				return err
			}

			if _, err := tx.Exec(ctx, `DELETE FROM lead_interactions WHERE lead_id = $1`, l.ID); err != nil {
				return err
			}
			for _, it := range l.Interactions {
				if _, err := tx.Exec(ctx, `
					INSERT INTO lead_interactions (lead_id, interaction_type, occurred_at, amount_cents)
					VALUES ($1, $2, $3, $4)
				`, l.ID, string(it.Type), it.Timestamp, it.AmountCents); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// SaveDerived persists recomputed scores and duplicate flags.
func (r *Repository) SaveDerived(ctx context.Context, leads []domain.Lead, scoreVersion string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, l := range leads {
			if _, err := tx.Exec(ctx, `
				UPDATE leads SET
					score_recency = $2,
					score_frequency = $3,
					score_monetary = $4,
					score_segment = $5,
					score_priority = $6,
					score_version = $7,
					is_duplicate = $8,
					merged_identities = $9,
					scored_at = now()
				WHERE id = $1
			`,
				l.ID, l.Score.Recency, l.Score.Frequency, l.Score.Monetary,
				l.Score.Segment, string(l.Score.Priority), scoreVersion,
				l.IsDuplicate, l.MergedIdentities,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStatus persists a soft status transition.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreatePool persists a new pool definition.
// AssignOperator stamps the acting operator on the given leads.
func (r *Repository) AssignOperator(ctx context.Context, leadIDs []string, operatorID string) error {
	if len(leadIDs) == 0 || operatorID == "" {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET assigned_operator_id = $2, updated_at = now() WHERE id = ANY($1)
	`, leadIDs, operatorID)
	return err
}

func (r *Repository) CreatePool(ctx context.Context, p domain.Pool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pools (id, name, description, tags, is_system, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, p.Description, p.Tags, p.System, p.CreatedAt)
	return err
}

// AddMembers records pool membership. Inserts are idempotent at the
// storage layer too: re-adding an existing member is a no-op.
func (r *Repository) AddMembers(ctx context.Context, poolID string, leadIDs []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, id := range leadIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO pool_members (pool_id, lead_id, added_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (pool_id, lead_id) DO NOTHING
			`, poolID, id, time.Now().UTC()); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePool removes the pool row; membership rows cascade via FK.
func (r *Repository) DeletePool(ctx context.Context, poolID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pools WHERE id = $1`, poolID)
	return err
}

// Compile-time check that Repository satisfies the full persistence surface.
var _ Store = (*Repository)(nil)
