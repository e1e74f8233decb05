package nodes

import (
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	"github.com/haneiva1/autoventas/engine/respond"
	"github.com/haneiva1/autoventas/engine/validate"
)

// FinalizeReply builds the caller-facing result after a full pipeline run.
// The override flag comes from the post-execution state, so an ESCALATE
// executed this turn already silences the reply.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Outcome.State == nil {
		return GraphOutput{}, fmt.Errorf("%w: execution outcome is missing", contractx.ErrValidation)
	}

	return respond.Build(respond.Input{
		HumanOverride:    in.Outcome.State.HumanOverride,
		ResponseText:     in.Proposal.Response,
		NewState:         in.Outcome.State.State,
		ExecutedActions:  in.Outcome.Executed,
		ValidationErrors: validate.Reasons(in.Results),
	}), nil
}

// FinalizeSilent is the human-override short-circuit: no generation call
// happened, no state changed, and the caller must stay silent.
func FinalizeSilent(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Conversation == nil {
		return GraphOutput{}, fmt.Errorf("%w: conversation snapshot is missing", contractx.ErrValidation)
	}

	return respond.Build(respond.Input{
		HumanOverride: true,
		NewState:      in.Conversation.State,
	}), nil
}
