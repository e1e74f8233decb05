// Package pipeline composes the engine stages into one request-scoped run:
// load state, detect events, propose, validate, execute, persist, respond.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	nodex "github.com/haneiva1/autoventas/engine/nodes"
	statex "github.com/haneiva1/autoventas/engine/state"
)

var (
	ErrInvalidMessage      = nodex.ErrInvalidMessage
	ErrInvalidConversation = nodex.ErrInvalidConversation
)

type Config struct {
	ChannelType string
}

// Engine is the conversation automation engine. One ProcessMessage call is
// one state transition; the engine assumes at most one in-flight call per
// conversation, so callers must serialize per-conversation delivery.
type Engine struct {
	store    statex.Store
	catalog  contractx.Catalog
	history  contractx.History
	audit    contractx.AuditLog
	proposer contractx.Proposer

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	channelType string
	now         func() time.Time
}

func New(
	store statex.Store,
	catalog contractx.Catalog,
	history contractx.History,
	audit contractx.AuditLog,
	proposer contractx.Proposer,
	cfg Config,
) (*Engine, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if catalog == nil {
		return nil, errors.New("product catalog is required")
	}
	if history == nil {
		history = noopHistory{}
	}
	if audit == nil {
		audit = noopAuditLog{}
	}
	if proposer == nil {
		return nil, errors.New("proposer is required")
	}

	channelType := strings.TrimSpace(cfg.ChannelType)
	if channelType == "" {
		channelType = "chat"
	}

	e := &Engine{
		store:       store,
		catalog:     catalog,
		history:     history,
		audit:       audit,
		proposer:    proposer,
		channelType: channelType,
		now:         time.Now,
	}

	graphRunner, err := e.compileProcessMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// ProcessMessage runs the full pipeline for one inbound customer message
// and always returns a result unless a gateway write failed.
func (e *Engine) ProcessMessage(ctx context.Context, req contractx.ProcessRequest) (contractx.ProcessResult, error) {
	out, err := e.graphRunner.Invoke(ctx, nodex.GraphInput{
		ConversationID:  req.ConversationID,
		TenantID:        req.TenantID,
		CustomerMessage: req.CustomerMessage,
		HasAttachment:   req.HasAttachment,
		PaymentApproved: req.PaymentApproved,
		PaymentRejected: req.PaymentRejected,
		SessionExpired:  req.SessionExpired,
	})
	if err != nil {
		return contractx.ProcessResult{}, err
	}
	return out, nil
}

type noopHistory struct{}

func (noopHistory) RecentTurns(context.Context, string, int) ([]contractx.Turn, error) {
	return nil, nil
}

func (noopHistory) AppendTurns(context.Context, string, []contractx.Turn) error {
	return nil
}

type noopAuditLog struct{}

func (noopAuditLog) AppendActions(context.Context, []contractx.ActionRecord) error {
	return nil
}
