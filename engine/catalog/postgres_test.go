package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	store := NewPostgresStoreFromDB(db)
	t.Cleanup(func() { _ = store.Close() })
	return store, mock
}

func TestLoadProductsFiltersByTenantAndActive(t *testing.T) {
	store, mock := newMockStore(t)

	// bun interpolates arguments into the statement itself, so the
	// expectation matches on the rendered SQL.
	mock.ExpectQuery(`SELECT (.+) FROM "products" AS "p" WHERE \(p\.tenant_id = 'tenant-1'\) AND \(p\.active = TRUE\) ORDER BY p\.name ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "price", "active"}).
			AddRow("p2", "tenant-1", "Mouse", 30.0, true).
			AddRow("p1", "tenant-1", "Teclado", 19.99, true))

	products, err := store.LoadProducts(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("LoadProducts() error = %v", err)
	}

	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if products[0].ID != "p2" || products[0].Price != 30 || !products[0].Active {
		t.Fatalf("unexpected first product: %+v", products[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadProductsQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM "products"`).
		WillReturnError(context.DeadlineExceeded)

	if _, err := store.LoadProducts(context.Background(), "tenant-1"); err == nil {
		t.Fatal("LoadProducts() must surface the query error")
	}
}

func TestRecentTurnsReturnsOldestFirst(t *testing.T) {
	store, mock := newMockStore(t)

	// The query fetches newest first; callers get oldest first.
	mock.ExpectQuery(`SELECT (.+) FROM "conversation_turns" AS "t" WHERE \(t\.conversation_id = 'conv-1'\) ORDER BY t\.id DESC LIMIT 10`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "role", "text", "created_at"}).
			AddRow(3, "conv-1", "assistant", "Claro, ¿cuál talla?", nil).
			AddRow(2, "conv-1", "customer", "quiero una playera", nil).
			AddRow(1, "conv-1", "assistant", "Hola, ¿en qué te ayudo?", nil))

	turns, err := store.RecentTurns(context.Background(), "conv-1", 10)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}

	if len(turns) != 3 {
		t.Fatalf("turns = %d, want 3", len(turns))
	}
	if turns[0].Text != "Hola, ¿en qué te ayudo?" {
		t.Fatalf("first turn = %q, want the oldest", turns[0].Text)
	}
	if turns[2].Role != "assistant" || turns[2].Text != "Claro, ¿cuál talla?" {
		t.Fatalf("last turn = %+v, want the newest", turns[2])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecentTurnsZeroLimitSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	turns, err := store.RecentTurns(context.Background(), "conv-1", 0)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if turns != nil {
		t.Fatalf("turns = %v, want nil", turns)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query: %v", err)
	}
}

func TestAppendTurnsBatchInsert(t *testing.T) {
	store, mock := newMockStore(t)

	// Autoincrement ids come back via RETURNING, so bun issues a query.
	mock.ExpectQuery(`INSERT INTO "conversation_turns"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	err := store.AppendTurns(context.Background(), "conv-1", []contractx.Turn{
		{Role: "customer", Text: "quiero dos mouse"},
		{Role: "assistant", Text: "Listo, agregué 2 mouse."},
	})
	if err != nil {
		t.Fatalf("AppendTurns() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendTurnsEmptyIsNoop(t *testing.T) {
	store, mock := newMockStore(t)

	if err := store.AppendTurns(context.Background(), "conv-1", nil); err != nil {
		t.Fatalf("AppendTurns() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query: %v", err)
	}
}

func TestAppendActionsBatchInsert(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO "action_history"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	records := []contractx.ActionRecord{
		{
			ConversationID: "conv-1",
			ActionType:     contractx.ActionAddToCart,
			ActionPayload:  contractx.ActionParams{ProductID: "p1", Quantity: 2},
			Validated:      true,
			Executed:       true,
			StateBefore:    statex.StateBrowsing,
			StateAfter:     statex.StateCartOpen,
		},
		{
			ConversationID: "conv-1",
			ActionType:     contractx.ActionSetPrice,
			ActionPayload:  contractx.ActionParams{ProductID: "p1"},
			Validated:      false,
			Executed:       false,
			StateBefore:    statex.StateBrowsing,
			StateAfter:     statex.StateCartOpen,
		},
	}

	if err := store.AppendActions(context.Background(), records); err != nil {
		t.Fatalf("AppendActions() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendActionsEmptyIsNoop(t *testing.T) {
	store, mock := newMockStore(t)

	if err := store.AppendActions(context.Background(), nil); err != nil {
		t.Fatalf("AppendActions() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query: %v", err)
	}
}
