package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	"github.com/haneiva1/autoventas/engine/proposer"
	statex "github.com/haneiva1/autoventas/engine/state"
)

type fakeStore struct {
	states  map[string]*statex.ConversationState
	saved   []*statex.ConversationState
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: map[string]*statex.ConversationState{}}
}

func (s *fakeStore) Load(_ context.Context, conversationID string) (*statex.ConversationState, error) {
	st, ok := s.states[conversationID]
	if !ok {
		return nil, statex.ErrStateNotFound
	}
	return st.Clone(), nil
}

func (s *fakeStore) Save(_ context.Context, st *statex.ConversationState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	clone := st.Clone()
	s.states[st.ConversationID] = clone
	s.saved = append(s.saved, clone)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, conversationID string) error {
	delete(s.states, conversationID)
	return nil
}

type fakeCatalog struct {
	products []contractx.Product
	err      error
}

func (c *fakeCatalog) LoadProducts(context.Context, string) ([]contractx.Product, error) {
	return c.products, c.err
}

type fakeHistory struct {
	turns    []contractx.Turn
	appended [][]contractx.Turn
}

func (h *fakeHistory) RecentTurns(context.Context, string, int) ([]contractx.Turn, error) {
	return h.turns, nil
}

func (h *fakeHistory) AppendTurns(_ context.Context, _ string, turns []contractx.Turn) error {
	h.appended = append(h.appended, turns)
	return nil
}

type fakeAudit struct {
	records []contractx.ActionRecord
}

func (a *fakeAudit) AppendActions(_ context.Context, records []contractx.ActionRecord) error {
	a.records = append(a.records, records...)
	return nil
}

type fakeProposer struct {
	calls    int
	proposal contractx.Proposal
	fn       func(contractx.ProposalRequest) contractx.Proposal
}

func (p *fakeProposer) Propose(_ context.Context, req contractx.ProposalRequest) (contractx.Proposal, error) {
	p.calls++
	if p.fn != nil {
		return p.fn(req), nil
	}
	return p.proposal, nil
}

func mouseCatalog() *fakeCatalog {
	return &fakeCatalog{products: []contractx.Product{
		{ID: "p1", Name: "Mouse", Price: 30, Active: true},
		{ID: "p2", Name: "Teclado", Price: 19.99, Active: true},
	}}
}

func newEngine(t *testing.T, store *fakeStore, prop *fakeProposer, hist *fakeHistory, audit *fakeAudit) *Engine {
	t.Helper()

	eng, err := New(store, mouseCatalog(), hist, audit, prop, Config{ChannelType: "whatsapp"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return eng
}

func TestProcessMessageRejectsUnusableInput(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, newFakeStore(), &fakeProposer{proposal: proposer.Fallback(statex.StateIdle)}, &fakeHistory{}, &fakeAudit{})

	_, err := eng.ProcessMessage(context.Background(), contractx.ProcessRequest{
		ConversationID: "  ", CustomerMessage: "hola",
	})
	if !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("error = %v, want ErrInvalidConversation", err)
	}

	_, err = eng.ProcessMessage(context.Background(), contractx.ProcessRequest{
		ConversationID: "conv-1", CustomerMessage: "   ",
	})
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("error = %v, want ErrInvalidMessage", err)
	}
}

func TestProcessMessageAddToCartFlow(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	hist := &fakeHistory{}
	audit := &fakeAudit{}
	prop := &fakeProposer{proposal: contractx.Proposal{
		Actions: []contractx.ProposedAction{{
			Type:   contractx.ActionAddToCart,
			Params: contractx.ActionParams{ProductID: "p1", Quantity: 2},
		}},
		Response:       "Listo, agregué 2 mouse a tu carrito.",
		SuggestedState: statex.StateCartOpen,
	}}

	eng := newEngine(t, store, prop, hist, audit)

	got, err := eng.ProcessMessage(context.Background(), contractx.ProcessRequest{
		ConversationID: "conv-1", TenantID: "tenant-1", CustomerMessage: "quiero dos mouse",
	})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	if !got.Handled {
		t.Fatal("message must be handled")
	}
	if got.NewState != statex.StateCartOpen {
		t.Fatalf("new state = %s, want CART_OPEN", got.NewState)
	}
	if len(got.ExecutedActions) != 1 || got.ExecutedActions[0].Type != contractx.ActionAddToCart {
		t.Fatalf("executed = %+v", got.ExecutedActions)
	}
	if len(got.ValidationErrors) != 0 {
		t.Fatalf("validation errors = %v, want none", got.ValidationErrors)
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d states, want 1", len(store.saved))
	}
	saved := store.saved[0]
	if saved.State != statex.StateCartOpen || saved.Cart.Total != 60 {
		t.Fatalf("saved state = %s total=%v, want CART_OPEN total=60", saved.State, saved.Cart.Total)
	}

	if len(audit.records) != 1 {
		t.Fatalf("audit records = %d, want 1", len(audit.records))
	}
	rec := audit.records[0]
	if !rec.Validated || !rec.Executed {
		t.Fatalf("record verdicts = %+v", rec)
	}
	if rec.StateBefore != statex.StateIdle || rec.StateAfter != statex.StateCartOpen {
		t.Fatalf("record transition = %s -> %s", rec.StateBefore, rec.StateAfter)
	}

	if len(hist.appended) != 1 || len(hist.appended[0]) != 2 {
		t.Fatalf("history turns = %+v, want customer + assistant", hist.appended)
	}
	if hist.appended[0][0].Role != "customer" || hist.appended[0][1].Role != "assistant" {
		t.Fatalf("turn roles = %+v", hist.appended[0])
	}
}

func TestProcessMessageFiltersProhibitedAction(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	audit := &fakeAudit{}
	prop := &fakeProposer{proposal: contractx.Proposal{
		Actions: []contractx.ProposedAction{
			{Type: contractx.ActionApplyDiscount, Params: contractx.ActionParams{ProductID: "p1"}},
			{Type: contractx.ActionReply},
		},
		Response: "Te aplico un descuento del 50%.",
	}}

	eng := newEngine(t, store, prop, &fakeHistory{}, audit)

	got, err := eng.ProcessMessage(context.Background(), contractx.ProcessRequest{
		ConversationID: "conv-1", TenantID: "tenant-1", CustomerMessage: "dame un descuento",
	})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	if len(got.ValidationErrors) != 1 || !strings.Contains(got.ValidationErrors[0], "prohibited") {
		t.Fatalf("validation errors = %v", got.ValidationErrors)
	}
	if len(got.ExecutedActions) != 1 || got.ExecutedActions[0].Type != contractx.ActionReply {
		t.Fatalf("executed = %+v, want only REPLY", got.ExecutedActions)
	}
	if got.NewState != statex.StateIdle {
		t.Fatalf("new state = %s, want IDLE unchanged", got.NewState)
	}

	if len(audit.records) != 2 {
		t.Fatalf("audit records = %d, want 2", len(audit.records))
	}
	if audit.records[0].Validated || audit.records[0].Executed {
		t.Fatalf("prohibited action record = %+v, want rejected and unexecuted", audit.records[0])
	}
	if !audit.records[1].Validated || !audit.records[1].Executed {
		t.Fatalf("REPLY record = %+v", audit.records[1])
	}
}

func TestProcessMessageHumanOverrideShortCircuit(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seed := statex.NewConversationState("conv-1", "tenant-1", "whatsapp", time.Now().UTC())
	seed.State = statex.StateHumanTakeover
	seed.HumanOverride = true
	at := time.Now().UTC()
	seed.HumanOverrideAt = &at
	store.states["conv-1"] = seed

	prop := &fakeProposer{proposal: contractx.Proposal{
		Actions:  []contractx.ProposedAction{{Type: contractx.ActionReply}},
		Response: "No debería generarse",
	}}
	hist := &fakeHistory{}
	audit := &fakeAudit{}

	eng := newEngine(t, store, prop, hist, audit)

	got, err := eng.ProcessMessage(context.Background(), contractx.ProcessRequest{
		ConversationID: "conv-1", TenantID: "tenant-1", CustomerMessage: "hola?",
	})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	if !got.Handled || got.ResponseText != "" {
		t.Fatalf("result = %+v, want handled and silent", got)
	}
	if got.NewState != statex.StateHumanTakeover {
		t.Fatalf("new state = %s, want HUMAN_TAKEOVER", got.NewState)
	}
	if prop.calls != 0 {
		t.Fatalf("proposer called %d times, want 0 under override", prop.calls)
	}
	if len(store.saved) != 0 {
		t.Fatalf("saved %d states, want none under override", len(store.saved))
	}
	if len(hist.appended) != 0 || len(audit.records) != 0 {
		t.Fatal("no turns or audit records may be written under override")
	}
}

func TestProcessMessageEscalationSilencesReply(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	hist := &fakeHistory{}
	prop := &fakeProposer{proposal: contractx.Proposal{
		Actions:  []contractx.ProposedAction{{Type: contractx.ActionEscalate}},
		Response: "Un agente te atenderá en breve.",
	}}

	eng := newEngine(t, store, prop, hist, &fakeAudit{})

	got, err := eng.ProcessMessage(context.Background(), contractx.ProcessRequest{
		ConversationID: "conv-1", TenantID: "tenant-1", CustomerMessage: "quiero hablar con una persona",
	})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	if !got.Handled || got.ResponseText != "" {
		t.Fatalf("result = %+v, want handled and silent after escalation", got)
	}
	if got.NewState != statex.StateHumanTakeover {
		t.Fatalf("new state = %s, want HUMAN_TAKEOVER", got.NewState)
	}

	saved := store.states["conv-1"]
	if saved == nil || !saved.HumanOverride || saved.HumanOverrideAt == nil {
		t.Fatalf("saved state = %+v, want human override set", saved)
	}

	// The assistant turn is dropped once the conversation is handed over.
	if len(hist.appended) != 1 || len(hist.appended[0]) != 1 || hist.appended[0][0].Role != "customer" {
		t.Fatalf("history turns = %+v, want customer turn only", hist.appended)
	}
}

func TestProcessMessageFallbackProposal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	prop := &fakeProposer{fn: func(req contractx.ProposalRequest) contractx.Proposal {
		return proposer.Fallback(req.Conversation.State)
	}}

	eng := newEngine(t, store, prop, &fakeHistory{}, &fakeAudit{})

	got, err := eng.ProcessMessage(context.Background(), contractx.ProcessRequest{
		ConversationID: "conv-1", TenantID: "tenant-1", CustomerMessage: "asdfghjkl",
	})
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	if !got.Handled {
		t.Fatal("fallback must still be handled")
	}
	if got.ResponseText != proposer.FallbackText {
		t.Fatalf("response = %q, want fallback apology", got.ResponseText)
	}
	if got.NewState != statex.StateIdle {
		t.Fatalf("new state = %s, want IDLE unchanged", got.NewState)
	}
	if len(got.ExecutedActions) != 0 {
		t.Fatalf("executed = %v, want none", got.ExecutedActions)
	}
}

func TestProcessMessageSaveErrorPropagates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.saveErr = errors.New("redis unavailable")
	prop := &fakeProposer{proposal: contractx.Proposal{
		Actions:  []contractx.ProposedAction{{Type: contractx.ActionReply}},
		Response: "hola",
	}}

	eng := newEngine(t, store, prop, &fakeHistory{}, &fakeAudit{})

	_, err := eng.ProcessMessage(context.Background(), contractx.ProcessRequest{
		ConversationID: "conv-1", TenantID: "tenant-1", CustomerMessage: "hola",
	})
	if err == nil || !strings.Contains(err.Error(), "redis unavailable") {
		t.Fatalf("error = %v, want save failure", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	prop := &fakeProposer{}

	if _, err := New(nil, mouseCatalog(), nil, nil, prop, Config{}); err == nil {
		t.Fatal("nil store must be rejected")
	}
	if _, err := New(newFakeStore(), nil, nil, nil, prop, Config{}); err == nil {
		t.Fatal("nil catalog must be rejected")
	}
	if _, err := New(newFakeStore(), mouseCatalog(), nil, nil, nil, Config{}); err == nil {
		t.Fatal("nil proposer must be rejected")
	}

	// History and audit default to no-ops.
	eng, err := New(newFakeStore(), mouseCatalog(), nil, nil, prop, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if eng == nil {
		t.Fatal("engine must be constructed")
	}
}
