package nodes

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	"github.com/haneiva1/autoventas/engine/execute"
	statex "github.com/haneiva1/autoventas/engine/state"
)

var (
	ErrInvalidMessage      = errors.New("customer message is empty")
	ErrInvalidConversation = errors.New("conversation id is empty")
	ErrIncompleteState     = errors.New("pipeline state is incomplete")
)

// GraphInput is what the caller hands the pipeline.
type GraphInput struct {
	ConversationID  string
	TenantID        string
	CustomerMessage string

	HasAttachment   bool
	PaymentApproved bool
	PaymentRejected bool
	SessionExpired  bool
}

// GraphOutput is the final pipeline result.
type GraphOutput = contractx.ProcessResult

// GraphState is threaded through every node of one pipeline run. The
// Conversation field holds the snapshot loaded at the start; the executor
// produces a separate working copy in Outcome.
type GraphState struct {
	ConversationID string
	TenantID       string
	Text           string
	Now            time.Time

	HasAttachment   bool
	PaymentApproved bool
	PaymentRejected bool
	SessionExpired  bool

	Conversation *statex.ConversationState
	Events       []contractx.Event
	Products     []contractx.Product
	ProductIndex map[string]contractx.Product
	History      []contractx.Turn

	Proposal contractx.Proposal
	Results  []contractx.ValidationResult
	Accepted []contractx.ProposedAction
	Outcome  execute.Outcome
}

// ValidateRequest normalizes and rejects unusable input before anything
// else runs.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return nil, ErrInvalidConversation
	}
	text := strings.TrimSpace(in.CustomerMessage)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ConversationID:  conversationID,
		TenantID:        strings.TrimSpace(in.TenantID),
		Text:            text,
		Now:             nowFn().UTC(),
		HasAttachment:   in.HasAttachment,
		PaymentApproved: in.PaymentApproved,
		PaymentRejected: in.PaymentRejected,
		SessionExpired:  in.SessionExpired,
	}, nil
}
