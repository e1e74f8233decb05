package contract

import statex "github.com/haneiva1/autoventas/engine/state"

// ActionType tags a proposed operation. The generation component may only
// name types listed here; anything else is a contract violation that voids
// the whole proposal.
type ActionType string

const (
	ActionShowCatalog    ActionType = "SHOW_CATALOG"
	ActionShowProduct    ActionType = "SHOW_PRODUCT"
	ActionReply          ActionType = "REPLY"
	ActionClarify        ActionType = "CLARIFY"
	ActionEscalate       ActionType = "ESCALATE"
	ActionAddToCart      ActionType = "ADD_TO_CART"
	ActionUpdateQuantity ActionType = "UPDATE_QUANTITY"
	ActionRemoveItem     ActionType = "REMOVE_ITEM"
	ActionClearCart      ActionType = "CLEAR_CART"
	ActionReviewOrder    ActionType = "REVIEW_ORDER"
	ActionConfirmOrder   ActionType = "CONFIRM_ORDER"
	ActionCancelOrder    ActionType = "CANCEL_ORDER"

	// Prohibited regardless of state. Known names so the validator can
	// reject them with a precise reason instead of voiding the proposal.
	ActionSetPrice        ActionType = "SET_PRICE"
	ActionApplyDiscount   ActionType = "APPLY_DISCOUNT"
	ActionApprovePayment  ActionType = "APPROVE_PAYMENT"
	ActionRejectPayment   ActionType = "REJECT_PAYMENT"
	ActionDisableOverride ActionType = "DISABLE_HUMAN_OVERRIDE"
)

var prohibitedActions = map[ActionType]struct{}{
	ActionSetPrice:        {},
	ActionApplyDiscount:   {},
	ActionApprovePayment:  {},
	ActionRejectPayment:   {},
	ActionDisableOverride: {},
}

var anyState = []statex.FSMState{
	statex.StateIdle,
	statex.StateBrowsing,
	statex.StateCartOpen,
	statex.StateCheckout,
	statex.StateAwaitingPayment,
	statex.StateCompleted,
	statex.StateHumanTakeover,
}

// legalStates is the fixed legality matrix: action type -> states in which
// the validator may accept it. The matrix is total over allowed actions.
var legalStates = map[ActionType][]statex.FSMState{
	ActionShowCatalog: anyState,
	ActionShowProduct: anyState,
	ActionReply:       anyState,
	ActionClarify:     anyState,
	ActionEscalate:    anyState,

	ActionAddToCart: {statex.StateIdle, statex.StateBrowsing, statex.StateCartOpen},

	ActionUpdateQuantity: {statex.StateCartOpen},
	ActionRemoveItem:     {statex.StateCartOpen},
	ActionClearCart:      {statex.StateCartOpen},
	ActionReviewOrder:    {statex.StateCartOpen},

	ActionConfirmOrder: {statex.StateCheckout},

	ActionCancelOrder: {statex.StateCartOpen, statex.StateCheckout, statex.StateAwaitingPayment},
}

// IsProhibited reports whether the action type is permanently forbidden.
func IsProhibited(t ActionType) bool {
	_, ok := prohibitedActions[t]
	return ok
}

// IsAllowedType reports whether the action type exists in the legality
// matrix (prohibited types are not allowed types).
func IsAllowedType(t ActionType) bool {
	_, ok := legalStates[t]
	return ok
}

// IsKnownType reports whether the generation component may name this type
// at all. Unknown names void the entire proposal at the adapter.
func IsKnownType(t ActionType) bool {
	return IsAllowedType(t) || IsProhibited(t)
}

// LegalIn reports whether the action type may be validated in the given
// state. Prohibited and unknown types are legal nowhere.
func LegalIn(t ActionType, s statex.FSMState) bool {
	for _, allowed := range legalStates[t] {
		if allowed == s {
			return true
		}
	}
	return false
}
