package domain

import "time"

// UncategorizedPoolID is the distinguished computed pool. It has no stored
// membership: a lead belongs to it exactly when it belongs to no real pool.
const UncategorizedPoolID = "uncategorized"

// Pool is a named bucket of leads for campaign targeting. MemberCount is
// always derived by counting leads whose PoolIDs contain the pool's ID;
// it is never stored as an independent counter.
type Pool struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	System      bool      `json:"system"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PoolAssignment is the outcome of an addToPool batch. Already-member leads
// are reported as data, not as errors.
type PoolAssignment struct {
	Added         []string `json:"added"`
	AlreadyMember []string `json:"alreadyMember"`
}
