package contract

import "context"

// Proposer invokes the external generation component and returns either a
// schema-valid proposal or the fixed fallback. It has no persistent side
// effects and is safe to retry.
type Proposer interface {
	Propose(ctx context.Context, req ProposalRequest) (Proposal, error)
}

// Catalog supplies the authoritative, read-only product list per tenant.
type Catalog interface {
	LoadProducts(ctx context.Context, tenantID string) ([]Product, error)
}

// History reads the most recent conversation turns, newest last, and
// records the turns produced by a pipeline run.
type History interface {
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]Turn, error)
	AppendTurns(ctx context.Context, conversationID string, turns []Turn) error
}

// AuditLog appends action history records. Batch-capable, append-only.
type AuditLog interface {
	AppendActions(ctx context.Context, records []ActionRecord) error
}
