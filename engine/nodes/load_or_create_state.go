package nodes

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
)

// LoadOrCreateState loads the conversation snapshot, lazily creating a
// default state (IDLE, empty cart, no override) on first contact. Storage
// failures other than not-found propagate as hard errors.
func LoadOrCreateState(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	channelType string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.ConversationID)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			return nil, err
		}
		st = statex.NewConversationState(in.ConversationID, in.TenantID, channelType, in.Now)
	}
	in.Conversation = st
	return in, nil
}
