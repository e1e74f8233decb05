package proposer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
	openrouterx "github.com/haneiva1/autoventas/pkg/openrouter"
)

const testPrompt = "Eres un asistente de ventas. Responde solo JSON."

func testConfig() openrouterx.Config {
	return openrouterx.Config{
		Model:              "test/model",
		MaxCompletionToken: 512,
		Temperature:        0.1,
	}
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := openaisdk.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithHTTPClient(server.Client()),
		option.WithMaxRetries(0),
	)

	gen, err := New(&client, testConfig(), testPrompt)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return gen
}

func completionBody(t *testing.T, content string) string {
	t.Helper()

	encoded, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	return fmt.Sprintf(`{
		"id": "cmpl-1",
		"object": "chat.completion",
		"model": "test/model",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": %s}}]
	}`, encoded)
}

func proposalRequest() contractx.ProposalRequest {
	st := statex.NewConversationState("conv-1", "tenant-1", "chat", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	st.State = statex.StateBrowsing
	return contractx.ProposalRequest{
		Conversation: st,
		Message:      "quiero dos mouse",
		Events:       nil,
		Products: []contractx.Product{
			{ID: "p1", Name: "Mouse", Price: 30, Active: true},
		},
		Now: st.UpdatedAt,
	}
}

func TestNewRequiresPrompt(t *testing.T) {
	t.Parallel()

	client := openaisdk.NewClient(option.WithAPIKey("test-key"))
	_, err := New(&client, testConfig(), "   ")
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("New() error = %v, want ErrPromptMissing", err)
	}
}

func TestProposeParsesModelOutput(t *testing.T) {
	t.Parallel()

	content := `{"actions":[{"type":"ADD_TO_CART","params":{"product_id":"p1","quantity":2}}],` +
		`"response":"Listo, agregué 2 mouse.","suggested_state":"CART_OPEN"}`

	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(t, content))
	})

	got, err := gen.Propose(context.Background(), proposalRequest())
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	if got.Fallback {
		t.Fatal("valid output must not fall back")
	}
	if len(got.Actions) != 1 || got.Actions[0].Type != contractx.ActionAddToCart {
		t.Fatalf("unexpected actions: %+v", got.Actions)
	}
	if got.SuggestedState != statex.StateCartOpen {
		t.Fatalf("suggested state = %s, want CART_OPEN", got.SuggestedState)
	}
}

func TestProposeFallsBackOnTransportError(t *testing.T) {
	t.Parallel()

	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"upstream unavailable"}}`, http.StatusInternalServerError)
	})

	got, err := gen.Propose(context.Background(), proposalRequest())
	if err != nil {
		t.Fatalf("Propose() error = %v, want recovered fallback", err)
	}
	if !got.Fallback {
		t.Fatal("transport failure must yield fallback proposal")
	}
	if got.Response != FallbackText {
		t.Fatalf("fallback response = %q", got.Response)
	}
	if got.SuggestedState != statex.StateBrowsing {
		t.Fatalf("fallback suggested state = %s, want BROWSING", got.SuggestedState)
	}
	if len(got.Actions) != 0 {
		t.Fatalf("fallback actions = %v, want none", got.Actions)
	}
}

func TestProposeFallsBackOnContractViolation(t *testing.T) {
	t.Parallel()

	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody(t, "Claro, con gusto te ayudo con tu pedido."))
	})

	got, err := gen.Propose(context.Background(), proposalRequest())
	if err != nil {
		t.Fatalf("Propose() error = %v, want recovered fallback", err)
	}
	if !got.Fallback {
		t.Fatal("out-of-contract output must yield fallback proposal")
	}
}

func TestProposeRejectsNilConversation(t *testing.T) {
	t.Parallel()

	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("model must not be invoked for an unusable request")
	})

	_, err := gen.Propose(context.Background(), contractx.ProposalRequest{Message: "hola"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Propose() error = %v, want ErrValidation", err)
	}
}
