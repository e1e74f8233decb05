// Package execute applies accepted actions, strictly in order, to a working
// copy of the conversation state. It is a pure reducer: the input snapshot
// is never mutated, and cart totals are recomputed after every mutation
// instead of being carried over.
package execute

import (
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
)

// Outcome is the result of applying the accepted actions.
type Outcome struct {
	State    *statex.ConversationState
	Executed []contractx.ProposedAction
}

// Apply reduces the accepted actions over a clone of st. Prices always come
// from the authoritative products map, never from the proposal.
func Apply(
	st *statex.ConversationState,
	accepted []contractx.ProposedAction,
	products map[string]contractx.Product,
	now time.Time,
) Outcome {
	next := st.Clone()
	out := Outcome{State: next}

	for _, action := range accepted {
		if applyOne(next, action, products, now) {
			out.Executed = append(out.Executed, action)
		}
	}
	if len(out.Executed) > 0 {
		next.Touch(now)
	}
	return out
}

func applyOne(
	st *statex.ConversationState,
	action contractx.ProposedAction,
	products map[string]contractx.Product,
	now time.Time,
) bool {
	switch action.Type {
	case contractx.ActionAddToCart:
		return addToCart(st, action.Params, products)

	case contractx.ActionUpdateQuantity:
		idx := st.Cart.FindItem(action.Params.ProductID)
		if idx < 0 {
			return false
		}
		st.Cart.Items[idx].Quantity = action.Params.Quantity
		st.Cart.Recalculate()
		return true

	case contractx.ActionRemoveItem:
		idx := st.Cart.FindItem(action.Params.ProductID)
		if idx < 0 {
			return false
		}
		st.Cart.Items = append(st.Cart.Items[:idx], st.Cart.Items[idx+1:]...)
		st.Cart.Recalculate()
		if st.Cart.IsEmpty() {
			st.State = statex.StateBrowsing
		}
		return true

	case contractx.ActionClearCart:
		st.Cart.Items = nil
		st.Cart.Recalculate()
		st.State = statex.StateBrowsing
		return true

	case contractx.ActionReviewOrder:
		if st.State == statex.StateCartOpen {
			st.State = statex.StateCheckout
		}
		return true

	case contractx.ActionConfirmOrder:
		if st.State == statex.StateCheckout {
			st.State = statex.StateAwaitingPayment
		}
		return true

	case contractx.ActionCancelOrder:
		st.Cart.Items = nil
		st.Cart.Recalculate()
		st.PendingOrderID = ""
		st.State = statex.StateIdle
		return true

	case contractx.ActionEscalate:
		st.State = statex.StateHumanTakeover
		st.HumanOverride = true
		at := now.UTC()
		st.HumanOverrideAt = &at
		return true

	case contractx.ActionShowCatalog, contractx.ActionShowProduct,
		contractx.ActionReply, contractx.ActionClarify:
		// Executed but state-neutral.
		return true
	}

	return false
}

func addToCart(st *statex.ConversationState, params contractx.ActionParams, products map[string]contractx.Product) bool {
	product, ok := products[params.ProductID]
	if !ok || !product.Active {
		// No authoritative price available; the action cannot execute.
		log.Warn().
			Str("conversation_id", st.ConversationID).
			Str("product_id", params.ProductID).
			Msg("add_to_cart skipped: product not in catalog")
		return false
	}

	if idx := st.Cart.FindItem(product.ID); idx >= 0 {
		merged := st.Cart.Items[idx].Quantity + params.Quantity
		if merged > statex.MaxQuantity {
			merged = statex.MaxQuantity
		}
		st.Cart.Items[idx].Quantity = merged
		st.Cart.Items[idx].UnitPrice = product.Price
	} else {
		st.Cart.Items = append(st.Cart.Items, statex.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  params.Quantity,
			UnitPrice: product.Price,
		})
	}
	st.Cart.Recalculate()

	if st.State == statex.StateIdle || st.State == statex.StateBrowsing {
		st.State = statex.StateCartOpen
	}
	return true
}
