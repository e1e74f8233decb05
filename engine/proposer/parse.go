package proposer

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
)

type proposalOutput struct {
	Actions        []actionOutput `json:"actions"`
	Response       string         `json:"response"`
	SuggestedState string         `json:"suggested_state,omitempty"`
	Reasoning      string         `json:"reasoning,omitempty"`
}

type actionOutput struct {
	Type   string                 `json:"type"`
	Params contractx.ActionParams `json:"params"`
}

// parseProposal enforces the generation contract: well-formed JSON, 1-5
// actions of known type with well-typed params, response capped at 500
// characters, suggested state from the enumeration or absent. A single
// violation rejects the whole output.
func parseProposal(content string, current statex.FSMState) (contractx.Proposal, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return contractx.Proposal{}, fmt.Errorf("%w: empty completion", contractx.ErrSchemaViolation)
	}

	var out proposalOutput
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return contractx.Proposal{}, fmt.Errorf("%w: malformed encoding: %v", contractx.ErrSchemaViolation, err)
	}

	if len(out.Actions) == 0 {
		return contractx.Proposal{}, fmt.Errorf("%w: actions list is empty", contractx.ErrSchemaViolation)
	}
	if len(out.Actions) > maxActions {
		return contractx.Proposal{}, fmt.Errorf("%w: %d actions exceeds limit of %d", contractx.ErrSchemaViolation, len(out.Actions), maxActions)
	}

	actions := make([]contractx.ProposedAction, 0, len(out.Actions))
	for i, a := range out.Actions {
		t := contractx.ActionType(strings.TrimSpace(a.Type))
		if !contractx.IsKnownType(t) {
			return contractx.Proposal{}, fmt.Errorf("%w: unknown action type %q at index %d", contractx.ErrSchemaViolation, a.Type, i)
		}
		if a.Params.Quantity < 0 {
			return contractx.Proposal{}, fmt.Errorf("%w: negative quantity at index %d", contractx.ErrSchemaViolation, i)
		}
		actions = append(actions, contractx.ProposedAction{Type: t, Params: a.Params})
	}

	response := strings.TrimSpace(out.Response)
	if utf8.RuneCountInString(response) > maxResponseLen {
		return contractx.Proposal{}, fmt.Errorf("%w: response exceeds %d characters", contractx.ErrSchemaViolation, maxResponseLen)
	}

	suggested := current
	if raw := strings.TrimSpace(out.SuggestedState); raw != "" {
		candidate := statex.FSMState(raw)
		if !statex.IsValidState(candidate) {
			return contractx.Proposal{}, fmt.Errorf("%w: unknown suggested state %q", contractx.ErrSchemaViolation, raw)
		}
		suggested = candidate
	}

	return contractx.Proposal{
		Actions:        actions,
		Response:       response,
		SuggestedState: suggested,
		Reasoning:      strings.TrimSpace(out.Reasoning),
	}, nil
}
