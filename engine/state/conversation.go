package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// FSMState is one of the seven phases of the shopping flow.
type FSMState string

const (
	StateIdle            FSMState = "IDLE"
	StateBrowsing        FSMState = "BROWSING"
	StateCartOpen        FSMState = "CART_OPEN"
	StateCheckout        FSMState = "CHECKOUT"
	StateAwaitingPayment FSMState = "AWAITING_PAYMENT"
	StateCompleted       FSMState = "COMPLETED"
	StateHumanTakeover   FSMState = "HUMAN_TAKEOVER"
)

// AllStates lists every FSMState. Order is the natural flow order.
var AllStates = []FSMState{
	StateIdle,
	StateBrowsing,
	StateCartOpen,
	StateCheckout,
	StateAwaitingPayment,
	StateCompleted,
	StateHumanTakeover,
}

func IsValidState(s FSMState) bool {
	switch s {
	case StateIdle, StateBrowsing, StateCartOpen, StateCheckout,
		StateAwaitingPayment, StateCompleted, StateHumanTakeover:
		return true
	}
	return false
}

const (
	MinQuantity = 1
	MaxQuantity = 100
)

var (
	ErrNilConversation   = errors.New("conversation state is nil")
	ErrInvalidFSMState   = errors.New("invalid fsm state")
	ErrCartInvariant     = errors.New("cart invariant violated")
	ErrInvalidQuantity   = errors.New("quantity out of range")
	ErrEmptyConversation = errors.New("conversation id is empty")
)

type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type Cart struct {
	Items    []CartItem `json:"items,omitempty"`
	Total    float64    `json:"total"`
	Currency string     `json:"currency"`
}

// ConversationState is the persistent source-of-truth for one conversation.
// It is read-modify-written once per inbound message; the executor works on
// a clone and the caller persists the result, so concurrent pipelines for
// the same conversation must be serialized upstream.
type ConversationState struct {
	ConversationID string `json:"conversation_id"`
	TenantID       string `json:"tenant_id"`
	ChannelType    string `json:"channel_type"`

	State           FSMState   `json:"fsm_state"`
	HumanOverride   bool       `json:"human_override"`
	HumanOverrideAt *time.Time `json:"human_override_at,omitempty"`

	Cart           Cart   `json:"cart"`
	PendingOrderID string `json:"pending_order_id,omitempty"`

	// LastProposal is retained for audit and debugging only. The engine
	// never decodes it back for decision-making.
	LastProposal json.RawMessage `json:"last_proposal,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewConversationState(conversationID, tenantID, channelType string, now time.Time) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		TenantID:       tenantID,
		ChannelType:    channelType,
		State:          StateIdle,
		Cart:           Cart{Currency: "MXN"},
		UpdatedAt:      now.UTC(),
	}
}

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Clone returns a deep copy. The executor mutates the copy so the snapshot
// taken at pipeline start stays intact on any later failure.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	if s.HumanOverrideAt != nil {
		at := *s.HumanOverrideAt
		out.HumanOverrideAt = &at
	}
	if s.Cart.Items != nil {
		out.Cart.Items = make([]CartItem, len(s.Cart.Items))
		copy(out.Cart.Items, s.Cart.Items)
	}
	if s.LastProposal != nil {
		out.LastProposal = make(json.RawMessage, len(s.LastProposal))
		copy(out.LastProposal, s.LastProposal)
	}
	return &out
}

/* ------------------------------ Cart helpers ----------------------------- */

// FindItem returns the index of the line keyed by productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Recalculate recomputes every line subtotal and the cart total. Totals are
// never carried over from a previous value.
func (c *Cart) Recalculate() {
	total := 0.0
	for i := range c.Items {
		c.Items[i].Subtotal = roundMoney(float64(c.Items[i].Quantity) * c.Items[i].UnitPrice)
		total += c.Items[i].Subtotal
	}
	c.Total = roundMoney(total)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

/* -------------------------------- Validate ------------------------------- */

// Validate checks structural invariants before persisting or after loading.
func (s *ConversationState) Validate() error {
	if s == nil {
		return ErrNilConversation
	}
	if s.ConversationID == "" {
		return ErrEmptyConversation
	}
	if !IsValidState(s.State) {
		return fmt.Errorf("%w: %q", ErrInvalidFSMState, s.State)
	}
	if s.State == StateHumanTakeover && !s.HumanOverride {
		return fmt.Errorf("%w: HUMAN_TAKEOVER requires human_override", ErrInvalidFSMState)
	}

	seen := make(map[string]struct{}, len(s.Cart.Items))
	total := 0.0
	for _, item := range s.Cart.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item without product_id", ErrCartInvariant)
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Errorf("%w: duplicate line for product %s", ErrCartInvariant, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		if item.Quantity < MinQuantity || item.Quantity > MaxQuantity {
			return fmt.Errorf("%w: product %s quantity=%d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
		want := roundMoney(float64(item.Quantity) * item.UnitPrice)
		if item.Subtotal != want {
			return fmt.Errorf("%w: product %s subtotal=%v want %v", ErrCartInvariant, item.ProductID, item.Subtotal, want)
		}
		total += item.Subtotal
	}
	if s.Cart.Total != roundMoney(total) {
		return fmt.Errorf("%w: total=%v want %v", ErrCartInvariant, s.Cart.Total, roundMoney(total))
	}
	return nil
}
