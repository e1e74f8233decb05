package nodes

import (
	"context"
	"fmt"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
)

// Persist writes the post-execution state back through the gateway and
// appends the audit trail. Failures here are hard: the caller must not
// assume any intermediate state was saved.
func Persist(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	history contractx.History,
	audit contractx.AuditLog,
) (*GraphState, error) {
	if in == nil || in.Outcome.State == nil {
		return nil, fmt.Errorf("%w: execution outcome is missing", contractx.ErrValidation)
	}

	next := in.Outcome.State
	next.Touch(in.Now)
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("post-execution state validation failed: %w", err)
	}
	if err := store.Save(ctx, next); err != nil {
		return nil, err
	}

	if records := buildActionRecords(in); len(records) > 0 {
		if err := audit.AppendActions(ctx, records); err != nil {
			return nil, err
		}
	}

	turns := []contractx.Turn{{Role: "customer", Text: in.Text}}
	if !next.HumanOverride && in.Proposal.Response != "" {
		turns = append(turns, contractx.Turn{Role: "assistant", Text: in.Proposal.Response})
	}
	if err := history.AppendTurns(ctx, in.ConversationID, turns); err != nil {
		return nil, err
	}

	return in, nil
}

// buildActionRecords emits one append-only record per proposed action, with
// the validation verdict and whether the executor actually applied it.
func buildActionRecords(in *GraphState) []contractx.ActionRecord {
	if len(in.Results) == 0 {
		return nil
	}

	executed := make(map[contractx.ProposedAction]int, len(in.Outcome.Executed))
	for _, a := range in.Outcome.Executed {
		executed[a]++
	}

	before := in.Conversation.State
	after := in.Outcome.State.State

	records := make([]contractx.ActionRecord, 0, len(in.Results))
	for _, r := range in.Results {
		wasExecuted := false
		if r.Valid && executed[r.Action] > 0 {
			executed[r.Action]--
			wasExecuted = true
		}
		records = append(records, contractx.ActionRecord{
			ConversationID: in.ConversationID,
			ActionType:     r.Action.Type,
			ActionPayload:  r.Action.Params,
			Validated:      r.Valid,
			Executed:       wasExecuted,
			StateBefore:    before,
			StateAfter:     after,
		})
	}
	return records
}
