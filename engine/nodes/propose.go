package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
)

// Propose invokes the generation adapter. The adapter owns the fallback
// path, so the proposal is always usable when err is nil.
func Propose(ctx context.Context, in *GraphState, proposer contractx.Proposer) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation snapshot is missing", contractx.ErrValidation)
	}

	proposal, err := proposer.Propose(ctx, contractx.ProposalRequest{
		Conversation: in.Conversation,
		Message:      in.Text,
		Events:       in.Events,
		History:      in.History,
		Products:     in.Products,
		Now:          in.Now,
	})
	if err != nil {
		return nil, err
	}
	in.Proposal = proposal

	// Retained on the persisted state for audit only.
	if raw, err := json.Marshal(proposal); err == nil {
		in.Conversation.LastProposal = raw
	}
	return in, nil
}
