package nodes

import (
	"context"
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
)

const historyLimit = 10

// GatherContext loads the read-only collaborator data the proposer needs:
// the tenant's product catalog and the recent conversation turns.
func GatherContext(
	ctx context.Context,
	in *GraphState,
	catalog contractx.Catalog,
	history contractx.History,
) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation snapshot is missing", contractx.ErrValidation)
	}

	products, err := catalog.LoadProducts(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	in.Products = products
	in.ProductIndex = make(map[string]contractx.Product, len(products))
	for _, p := range products {
		in.ProductIndex[p.ID] = p
	}

	turns, err := history.RecentTurns(ctx, in.ConversationID, historyLimit)
	if err != nil {
		return nil, err
	}
	in.History = turns
	return in, nil
}
