package contract

import (
	"time"

	statex "github.com/haneiva1/autoventas/engine/state"
)

// Event is a signal detected from an inbound message or an external
// collaborator. Events inform the generation context; they never mutate
// state themselves.
type Event string

const (
	EventGreetingReceived     Event = "GREETING_RECEIVED"
	EventPaymentProofReceived Event = "PAYMENT_PROOF_RECEIVED"
	EventPaymentApproved      Event = "PAYMENT_APPROVED"
	EventPaymentRejected      Event = "PAYMENT_REJECTED"
	EventEscalationRequested  Event = "ESCALATION_REQUESTED"
	EventSessionTimeout       Event = "SESSION_TIMEOUT"
	EventOrderCancelled       Event = "ORDER_CANCELLED"
)

// ActionParams is the narrow, per-type-validated parameter bag of a
// proposed action. Fields are never trusted until the validator has
// accepted the action.
type ActionParams struct {
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// ProposedAction is one entry of a generation proposal.
type ProposedAction struct {
	Type   ActionType   `json:"type"`
	Params ActionParams `json:"params"`
}

// Proposal is the schema-validated output of the generation component, or
// the fixed fallback when the output violated the contract.
type Proposal struct {
	Actions        []ProposedAction `json:"actions"`
	Response       string           `json:"response"`
	SuggestedState statex.FSMState  `json:"suggested_state"`
	Reasoning      string           `json:"reasoning,omitempty"`
	Fallback       bool             `json:"fallback,omitempty"`
}

// ValidationResult is the per-action verdict of the validator. Rejections
// always carry a human-readable reason.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Error  string         `json:"error,omitempty"`
	Action ProposedAction `json:"action"`
}

// Product is the authoritative, read-only catalog entry supplied per call.
// Prices are immutable from the engine's perspective.
type Product struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Active bool    `json:"active"`
}

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ActionRecord is one append-only audit entry, written once per proposed
// action after the pipeline finishes and never mutated.
type ActionRecord struct {
	ConversationID string          `json:"conversation_id"`
	ActionType     ActionType      `json:"action_type"`
	ActionPayload  ActionParams    `json:"action_payload"`
	Validated      bool            `json:"validated"`
	Executed       bool            `json:"executed"`
	StateBefore    statex.FSMState `json:"fsm_state_before"`
	StateAfter     statex.FSMState `json:"fsm_state_after"`
}

// ProposalRequest is the bounded context handed to the generation component.
type ProposalRequest struct {
	Conversation *statex.ConversationState `json:"conversation"`
	Message      string                    `json:"message"`
	Events       []Event                   `json:"events,omitempty"`
	History      []Turn                    `json:"history,omitempty"`
	Products     []Product                 `json:"products,omitempty"`
	Now          time.Time                 `json:"now"`
}

// ProcessRequest is the single inbound operation of the engine.
type ProcessRequest struct {
	ConversationID  string `json:"conversation_id"`
	TenantID        string `json:"tenant_id"`
	CustomerMessage string `json:"customer_message"`

	// External signals accompanying the message, supplied by the
	// ingestion layer (attachments, operator actions, timers).
	HasAttachment   bool `json:"has_attachment,omitempty"`
	PaymentApproved bool `json:"payment_approved,omitempty"`
	PaymentRejected bool `json:"payment_rejected,omitempty"`
	SessionExpired  bool `json:"session_expired,omitempty"`
}

// ProcessResult is what the engine returns to the caller. Handled=false
// signals the caller to fall back to another handling path.
type ProcessResult struct {
	Handled          bool             `json:"handled"`
	ResponseText     string           `json:"response_text,omitempty"`
	NewState         statex.FSMState  `json:"new_state"`
	ExecutedActions  []ProposedAction `json:"executed_actions,omitempty"`
	ValidationErrors []string         `json:"validation_errors,omitempty"`
}
