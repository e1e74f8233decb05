package nodes

import (
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	"github.com/haneiva1/autoventas/engine/validate"
)

func ValidateActions(in *GraphState) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation snapshot is missing", contractx.ErrValidation)
	}

	in.Results = validate.Actions(in.Proposal.Actions, in.Conversation)
	in.Accepted = validate.Accepted(in.Results)
	return in, nil
}
