// Package catalog persists the read-side collaborator data in Postgres:
// the per-tenant product catalog, recent conversation turns, and the
// append-only action audit trail.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/haneiva1/autoventas/engine/contract"
)

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type productRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID       string  `bun:"id,pk"`
	TenantID string  `bun:"tenant_id"`
	Name     string  `bun:"name"`
	Price    float64 `bun:"price"`
	Active   bool    `bun:"active"`
}

type turnRow struct {
	bun.BaseModel `bun:"table:conversation_turns,alias:t"`

	ID             int64     `bun:"id,pk,autoincrement"`
	ConversationID string    `bun:"conversation_id"`
	Role           string    `bun:"role"`
	Text           string    `bun:"text"`
	CreatedAt      time.Time `bun:"created_at,nullzero"`
}

type actionRow struct {
	bun.BaseModel `bun:"table:action_history,alias:a"`

	ID             int64           `bun:"id,pk,autoincrement"`
	ConversationID string          `bun:"conversation_id"`
	ActionType     string          `bun:"action_type"`
	ActionPayload  json.RawMessage `bun:"action_payload,type:jsonb"`
	Validated      bool            `bun:"validated"`
	Executed       bool            `bun:"executed"`
	StateBefore    string          `bun:"fsm_state_before"`
	StateAfter     string          `bun:"fsm_state_after"`
	CreatedAt      time.Time       `bun:"created_at,nullzero"`
}

// PostgresStore implements contract.Catalog, contract.History, and
// contract.AuditLog on a single bun connection.
type PostgresStore struct {
	db  *bun.DB
	now func() time.Time
}

var (
	_ contractx.Catalog  = (*PostgresStore)(nil)
	_ contractx.History  = (*PostgresStore)(nil)
	_ contractx.AuditLog = (*PostgresStore)(nil)
)

func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return NewPostgresStoreFromDB(sqldb), nil
}

// NewPostgresStoreFromDB wraps an existing database handle; tests inject a
// sqlmock connection here.
func NewPostgresStoreFromDB(sqldb *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  bun.NewDB(sqldb, pgdialect.New()),
		now: time.Now,
	}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// LoadProducts returns the tenant's active products. Prices are
// authoritative here; nothing in the engine may write them.
func (s *PostgresStore) LoadProducts(ctx context.Context, tenantID string) ([]contractx.Product, error) {
	var rows []productRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("p.tenant_id = ?", tenantID).
		Where("p.active = TRUE").
		Order("p.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products for tenant=%s: %w", tenantID, err)
	}

	products := make([]contractx.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, contractx.Product{
			ID:     r.ID,
			Name:   r.Name,
			Price:  r.Price,
			Active: r.Active,
		})
	}
	return products, nil
}

// RecentTurns returns up to limit turns, oldest first.
func (s *PostgresStore) RecentTurns(ctx context.Context, conversationID string, limit int) ([]contractx.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []turnRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("t.conversation_id = ?", conversationID).
		Order("t.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recent turns for conversation=%s: %w", conversationID, err)
	}

	turns := make([]contractx.Turn, len(rows))
	for i, r := range rows {
		turns[len(rows)-1-i] = contractx.Turn{Role: r.Role, Text: r.Text}
	}
	return turns, nil
}

func (s *PostgresStore) AppendTurns(ctx context.Context, conversationID string, turns []contractx.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	now := s.now().UTC()
	rows := make([]turnRow, 0, len(turns))
	for _, t := range turns {
		rows = append(rows, turnRow{
			ConversationID: conversationID,
			Role:           t.Role,
			Text:           t.Text,
			CreatedAt:      now,
		})
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("append turns for conversation=%s: %w", conversationID, err)
	}
	return nil
}

// AppendActions writes the batch of audit records in one insert.
func (s *PostgresStore) AppendActions(ctx context.Context, records []contractx.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := s.now().UTC()
	rows := make([]actionRow, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec.ActionPayload)
		if err != nil {
			return fmt.Errorf("marshal action payload: %w", err)
		}
		rows = append(rows, actionRow{
			ConversationID: rec.ConversationID,
			ActionType:     string(rec.ActionType),
			ActionPayload:  payload,
			Validated:      rec.Validated,
			Executed:       rec.Executed,
			StateBefore:    string(rec.StateBefore),
			StateAfter:     string(rec.StateAfter),
			CreatedAt:      now,
		})
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("append action history: %w", err)
	}
	return nil
}
