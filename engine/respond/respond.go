// Package respond maps an execution outcome to the final result returned to
// the caller.
package respond

import (
	"strings"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
)

// Input is everything the builder may consider. It is a pure mapping.
type Input struct {
	HumanOverride    bool
	ResponseText     string
	NewState         statex.FSMState
	ExecutedActions  []contractx.ProposedAction
	ValidationErrors []string
}

// Build applies the rules in fixed order: an active human override silences
// the assistant regardless of any generated text; otherwise a non-empty
// response text is returned; otherwise the message is not handled and the
// caller falls back to another path. Validation errors are always attached.
func Build(in Input) contractx.ProcessResult {
	result := contractx.ProcessResult{
		NewState:         in.NewState,
		ExecutedActions:  in.ExecutedActions,
		ValidationErrors: in.ValidationErrors,
	}

	if in.HumanOverride {
		result.Handled = true
		result.ResponseText = ""
		return result
	}

	if text := strings.TrimSpace(in.ResponseText); text != "" {
		result.Handled = true
		result.ResponseText = text
		return result
	}

	result.Handled = false
	return result
}
