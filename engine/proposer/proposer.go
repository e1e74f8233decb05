// Package proposer adapts the external language-generation component. It
// builds a bounded context, invokes the model, and schema-validates the
// output. Anything out of contract voids the whole output and yields the
// fixed fallback; the adapter never partially trusts an invalid response.
package proposer

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	statex "github.com/haneiva1/autoventas/engine/state"
	openrouterx "github.com/haneiva1/autoventas/pkg/openrouter"
)

const (
	maxActions      = 5
	maxResponseLen  = 500
	defaultTurns    = 10
	defaultProducts = 50
)

// FallbackText is the generic apology used whenever the generation output
// cannot be trusted.
const FallbackText = "Lo siento, tuve un problema para procesar tu mensaje. ¿Me lo puedes repetir, por favor?"

type Generator struct {
	client       *openaisdk.Client
	model        string
	maxTokens    int64
	temperature  float64
	systemPrompt string
}

func New(client *openaisdk.Client, cfg openrouterx.Config, systemPrompt string) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openrouter client is required", contractx.ErrModelInvoke)
	}
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		return nil, contractx.ErrPromptMissing
	}
	return &Generator{
		client:       client,
		model:        strings.TrimSpace(cfg.Model),
		maxTokens:    cfg.MaxCompletionToken,
		temperature:  cfg.Temperature,
		systemPrompt: systemPrompt,
	}, nil
}

var _ contractx.Proposer = (*Generator)(nil)

// Propose invokes the model once. Transport failures and contract
// violations are recovered locally: the caller always gets a usable
// proposal. The returned error is reserved for unusable requests.
func (g *Generator) Propose(ctx context.Context, req contractx.ProposalRequest) (contractx.Proposal, error) {
	if req.Conversation == nil {
		return contractx.Proposal{}, fmt.Errorf("%w: conversation snapshot is required", contractx.ErrValidation)
	}
	current := req.Conversation.State

	payload, err := buildPayload(req)
	if err != nil {
		return contractx.Proposal{}, fmt.Errorf("%w: marshal proposal context: %v", contractx.ErrValidation, err)
	}

	completion, err := g.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(g.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(g.systemPrompt),
			openaisdk.UserMessage(payload),
		},
		MaxTokens:   openaisdk.Int(g.maxTokens),
		Temperature: openaisdk.Float(g.temperature),
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		log.Warn().Err(err).
			Str("conversation_id", req.Conversation.ConversationID).
			Msg("model invoke failed, using fallback proposal")
		return Fallback(current), nil
	}
	if len(completion.Choices) == 0 {
		log.Warn().
			Str("conversation_id", req.Conversation.ConversationID).
			Msg("model returned no choices, using fallback proposal")
		return Fallback(current), nil
	}

	proposal, err := parseProposal(completion.Choices[0].Message.Content, current)
	if err != nil {
		log.Warn().Err(err).
			Str("conversation_id", req.Conversation.ConversationID).
			Str("fsm_state", string(current)).
			Msg("model output out of contract, using fallback proposal")
		return Fallback(current), nil
	}
	return proposal, nil
}

// Fallback is the fixed recovery proposal: zero actions, generic apology,
// suggested state equal to the current state.
func Fallback(current statex.FSMState) contractx.Proposal {
	return contractx.Proposal{
		Actions:        nil,
		Response:       FallbackText,
		SuggestedState: current,
		Fallback:       true,
	}
}
