package pipeline

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/haneiva1/autoventas/engine/contract"
	nodex "github.com/haneiva1/autoventas/engine/nodes"
)

func (e *Engine) compileProcessMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_state",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateState(ctx, in, e.store, e.channelType)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_state: %w", err)
	}

	if err := graph.AddLambdaNode("detect_events",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DetectEvents(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node detect_events: %w", err)
	}

	if err := graph.AddLambdaNode("gather_context",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.GatherContext(ctx, in, e.catalog, e.history)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node gather_context: %w", err)
	}

	if err := graph.AddLambdaNode("propose",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Propose(ctx, in, e.proposer)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node propose: %w", err)
	}

	if err := graph.AddLambdaNode("validate_actions",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ValidateActions(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_actions: %w", err)
	}

	if err := graph.AddLambdaNode("execute_actions",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExecuteActions(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_actions: %w", err)
	}

	if err := graph.AddLambdaNode("persist",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Persist(ctx, in, e.store, e.history, e.audit)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_silent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeSilent(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_silent: %w", err)
	}

	// A conversation under human control short-circuits: no generation
	// call, no state change, no reply.
	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil || in.Conversation == nil {
				return "", fmt.Errorf("%w: conversation snapshot is missing", contractx.ErrValidation)
			}
			if in.Conversation.HumanOverride {
				return "finalize_silent", nil
			}
			return "gather_context", nil
		},
		map[string]bool{
			"finalize_silent": true,
			"gather_context":  true,
		},
	)

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_state"},
		{"load_or_create_state", "detect_events"},
		{"gather_context", "propose"},
		{"propose", "validate_actions"},
		{"validate_actions", "execute_actions"},
		{"execute_actions", "persist"},
		{"persist", "finalize_reply"},
		{"finalize_reply", compose.END},
		{"finalize_silent", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	if err := graph.AddBranch("detect_events", branch); err != nil {
		return nil, fmt.Errorf("add override branch: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("engine.process_message"))
	if err != nil {
		return nil, fmt.Errorf("compile process message graph: %w", err)
	}
	return runner, nil
}
