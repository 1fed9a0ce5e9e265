package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/bankabc/voice-agent/agent/nodes"
)

func (o *Orchestrator) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodes.GraphInput, nodes.GraphOutput], error) {
	graph := compose.NewGraph[nodes.GraphInput, nodes.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodes.GraphInput) (*nodes.GraphState, error) {
			return nodes.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("acquire_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodes.GraphState) (*nodes.GraphState, error) {
			return nodes.AcquireSession(in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node acquire_session: %w", err)
	}

	if err := graph.AddLambdaNode("inline_verify",
		compose.InvokableLambda(func(ctx context.Context, in *nodes.GraphState) (*nodes.GraphState, error) {
			return nodes.InlineVerify(ctx, in, o.gate)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node inline_verify: %w", err)
	}

	if err := graph.AddLambdaNode("smalltalk",
		compose.InvokableLambda(func(ctx context.Context, in *nodes.GraphState) (*nodes.GraphState, error) {
			return nodes.Smalltalk(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node smalltalk: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_pending",
		compose.InvokableLambda(func(ctx context.Context, in *nodes.GraphState) (*nodes.GraphState, error) {
			return nodes.ResolvePending(ctx, in, o.dispatcher, o.classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_pending: %w", err)
	}

	if err := graph.AddLambdaNode("classify",
		compose.InvokableLambda(func(ctx context.Context, in *nodes.GraphState) (*nodes.GraphState, error) {
			return nodes.Classify(in, o.classifier, o.auditor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_flow",
		compose.InvokableLambda(func(ctx context.Context, in *nodes.GraphState) (*nodes.GraphState, error) {
			return nodes.DispatchFlow(ctx, in, o.dispatcher)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_flow: %w", err)
	}

	if err := graph.AddLambdaNode("persist_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodes.GraphState) (*nodes.GraphState, error) {
			return nodes.PersistSession(in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodes.GraphState) (nodes.GraphOutput, error) {
			return nodes.FinalizeReply(ctx, in, o.completer, o.auditor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "acquire_session"},
		{"acquire_session", "inline_verify"},
		{"inline_verify", "smalltalk"},
		{"smalltalk", "resolve_pending"},
		{"resolve_pending", "classify"},
		{"classify", "dispatch_flow"},
		{"dispatch_flow", "persist_session"},
		{"persist_session", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
