package proposer

import (
	"encoding/json"

	contractx "github.com/haneiva1/autoventas/engine/contract"
)

// buildPayload serializes the bounded generation context. History and
// catalog are capped so one oversized conversation cannot blow the prompt.
func buildPayload(req contractx.ProposalRequest) (string, error) {
	st := req.Conversation

	history := req.History
	if len(history) > defaultTurns {
		history = history[len(history)-defaultTurns:]
	}

	products := make([]map[string]any, 0, len(req.Products))
	for _, p := range req.Products {
		if !p.Active {
			continue
		}
		products = append(products, map[string]any{
			"id":    p.ID,
			"name":  p.Name,
			"price": p.Price,
		})
		if len(products) >= defaultProducts {
			break
		}
	}

	payload := map[string]any{
		"fsm_state":      st.State,
		"human_override": st.HumanOverride,
		"cart":           st.Cart,
		"events":         req.Events,
		"message":        req.Message,
		"history":        history,
		"products":       products,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
