// Package validate checks proposed actions against the current state, the
// cart, and the fixed legality matrix. It reads state and never writes it:
// the same (action, state, cart) input always yields the same verdict.
package validate

import (
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
)

// Actions partitions the proposals into per-action verdicts, in the order
// received. Rejections carry a human-readable reason; the offending action
// is simply excluded from execution downstream.
func Actions(proposals []contractx.ProposedAction, st *statex.ConversationState) []contractx.ValidationResult {
	results := make([]contractx.ValidationResult, 0, len(proposals))
	for _, action := range proposals {
		results = append(results, one(action, st))
	}
	return results
}

// Accepted filters the valid actions out of the results, preserving order.
func Accepted(results []contractx.ValidationResult) []contractx.ProposedAction {
	var accepted []contractx.ProposedAction
	for _, r := range results {
		if r.Valid {
			accepted = append(accepted, r.Action)
		}
	}
	return accepted
}

// Reasons collects the rejection strings, preserving order.
func Reasons(results []contractx.ValidationResult) []string {
	var reasons []string
	for _, r := range results {
		if !r.Valid {
			reasons = append(reasons, r.Error)
		}
	}
	return reasons
}

func one(action contractx.ProposedAction, st *statex.ConversationState) contractx.ValidationResult {
	if err := check(action, st); err != "" {
		return contractx.ValidationResult{Valid: false, Error: err, Action: action}
	}
	return contractx.ValidationResult{Valid: true, Action: action}
}

func check(action contractx.ProposedAction, st *statex.ConversationState) string {
	// Prohibited types lose unconditionally, before any other check.
	if contractx.IsProhibited(action.Type) {
		return fmt.Sprintf("action %s is permanently prohibited", action.Type)
	}
	if !contractx.IsAllowedType(action.Type) {
		return fmt.Sprintf("unknown action type %s", action.Type)
	}
	if st == nil {
		return "conversation state is missing"
	}
	if !contractx.LegalIn(action.Type, st.State) {
		return fmt.Sprintf("action %s not allowed in state %s", action.Type, st.State)
	}

	switch action.Type {
	case contractx.ActionShowProduct:
		if action.Params.ProductID == "" {
			return "SHOW_PRODUCT requires product_id"
		}

	case contractx.ActionAddToCart:
		if action.Params.ProductID == "" {
			return "ADD_TO_CART requires product_id"
		}
		if reason := quantityReason(action.Params.Quantity); reason != "" {
			return reason
		}

	case contractx.ActionUpdateQuantity:
		if action.Params.ProductID == "" {
			return "UPDATE_QUANTITY requires product_id"
		}
		if st.Cart.FindItem(action.Params.ProductID) < 0 {
			return fmt.Sprintf("product %s is not in the cart", action.Params.ProductID)
		}
		if reason := quantityReason(action.Params.Quantity); reason != "" {
			return reason
		}

	case contractx.ActionRemoveItem:
		if action.Params.ProductID == "" {
			return "REMOVE_ITEM requires product_id"
		}
		if st.Cart.FindItem(action.Params.ProductID) < 0 {
			return fmt.Sprintf("product %s is not in the cart", action.Params.ProductID)
		}

	case contractx.ActionClearCart, contractx.ActionReviewOrder, contractx.ActionConfirmOrder:
		if st.Cart.IsEmpty() {
			return fmt.Sprintf("%s requires a non-empty cart", action.Type)
		}
	}

	return ""
}

func quantityReason(q int) string {
	if q < statex.MinQuantity || q > statex.MaxQuantity {
		return fmt.Sprintf("quantity %d out of range [%d,%d]", q, statex.MinQuantity, statex.MaxQuantity)
	}
	return ""
}
