package nodes

import (
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	"github.com/haneiva1/autoventas/engine/execute"
)

func ExecuteActions(in *GraphState) (*GraphState, error) {
	if in == nil || in.Conversation == nil {
		return nil, fmt.Errorf("%w: conversation snapshot is missing", contractx.ErrValidation)
	}

	in.Outcome = execute.Apply(in.Conversation, in.Accepted, in.ProductIndex, in.Now)
	return in, nil
}
