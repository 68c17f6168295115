// Package openai provides a core.Invoker backed by the OpenAI Chat
// Completions API, including function/tool calling.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/fabriq-ai/engine/core"
	"github.com/fabriq-ai/engine/tool"
)

// Options configure the OpenAI invoker. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	// Tools resolves the tool names bound to each agent type. Defaults to
	// the built-in registry.
	Tools *tool.Registry
	// MaxToolTurns bounds the model/tool round trips within one Invoke.
	MaxToolTurns int
}

// Invoker wraps the OpenAI Chat Completions API behind the core.Invoker
// interface. Tool calls requested by the model are executed locally and fed
// back until the model produces a plain text reply.
type Invoker struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI invoker using the official client.
func New(optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Invoker{client: &client, opts: opts}
}

// NewFromClient creates a new OpenAI invoker from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Tools:               tool.Builtins(),
		MaxToolTurns:        10,
	}
}

// Invoke implements core.Invoker.
func (iv *Invoker) Invoke(ctx context.Context, call core.AgentCall) (string, error) {
	tools, err := iv.opts.Tools.Resolve(call.Tools)
	if err != nil {
		return "", err
	}
	toolParams := buildTools(tools)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(call.System),
		openai.UserMessage(call.Input),
	}

	for turn := 0; turn < iv.opts.MaxToolTurns; turn++ {
		params := openai.ChatCompletionNewParams{
			Messages:            messages,
			Model:               call.Model,
			Temperature:         openai.Float(iv.opts.Temperature),
			MaxCompletionTokens: openai.Int(iv.opts.MaxCompletionTokens),
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}

		resp, err := iv.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("openai api error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices returned")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		messages = append(messages, msg.ToParam())
		for _, tc := range msg.ToolCalls {
			result := iv.execTool(ctx, tc.Function.Name, tc.Function.Arguments)
			messages = append(messages, openai.ToolMessage(result, tc.ID))
		}
	}

	return "", fmt.Errorf("tool loop exceeded %d turns for agent %q", iv.opts.MaxToolTurns, call.Agent)
}

// execTool runs one requested tool call. Failures are reported back to the
// model as result text instead of aborting the invocation.
func (iv *Invoker) execTool(ctx context.Context, name, rawArgs string) string {
	t, ok := iv.opts.Tools.Get(name)
	if !ok {
		return fmt.Sprintf("unknown tool %q", name)
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return fmt.Sprintf("invalid tool arguments: %v", err)
		}
	}

	out, err := t.Call(ctx, args)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%v", out)
}

// buildTools converts registry tools to OpenAI function definitions.
func buildTools(tools []tool.Tool) []openai.ChatCompletionToolParam {
	params := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		params[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name(),
				Description: openai.String(t.Description()),
				Parameters:  t.Parameters(),
			},
		}
	}
	return params
}
