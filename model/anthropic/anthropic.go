// Package anthropic provides a core.Invoker backed by the Anthropic Claude
// Messages API, including function/tool calling.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/fabriq-ai/engine/core"
	"github.com/fabriq-ai/engine/tool"
)

// Options configures the Anthropic invoker (temperature, max tokens, API key,
// tool registry). Extend via functional options to preserve stability.
type Options struct {
	Temperature float64
	MaxTokens   int64
	APIKey      string
	// Tools resolves the tool names bound to each agent type. Defaults to
	// the built-in registry.
	Tools *tool.Registry
	// MaxToolTurns bounds the model/tool round trips within one Invoke.
	MaxToolTurns int
}

// Invoker wraps the Anthropic Messages API behind the core.Invoker interface.
// Tool calls requested by the model are executed locally and fed back until
// the model produces a plain text reply.
type Invoker struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic invoker using the official client.
func New(optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Invoker{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic invoker from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Invoker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Temperature:  0.7,
		MaxTokens:    4096,
		Tools:        tool.Builtins(),
		MaxToolTurns: 10,
	}
}

// Invoke implements core.Invoker.
func (iv *Invoker) Invoke(ctx context.Context, call core.AgentCall) (string, error) {
	tools, err := iv.opts.Tools.Resolve(call.Tools)
	if err != nil {
		return "", err
	}
	toolParams := buildTools(tools)

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(call.Input)),
	}

	for turn := 0; turn < iv.opts.MaxToolTurns; turn++ {
		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(call.Model),
			Messages:    messages,
			MaxTokens:   iv.opts.MaxTokens,
			Temperature: anthropic.Float(iv.opts.Temperature),
		}
		if call.System != "" {
			params.System = []anthropic.TextBlockParam{{Text: call.System}}
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}

		resp, err := iv.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic api error: %w", err)
		}

		var text strings.Builder
		var toolUses []anthropic.ToolUseBlock
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text.WriteString(block.AsText().Text)
			case "tool_use":
				toolUses = append(toolUses, block.AsToolUse())
			}
		}

		if len(toolUses) == 0 {
			return text.String(), nil
		}

		messages = append(messages, resp.ToParam())
		results := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, tu := range toolUses {
			content, isError := iv.execTool(ctx, tu)
			results = append(results, anthropic.NewToolResultBlock(tu.ID, content, isError))
		}
		messages = append(messages, anthropic.NewUserMessage(results...))
	}

	return "", fmt.Errorf("tool loop exceeded %d turns for agent %q", iv.opts.MaxToolTurns, call.Agent)
}

// execTool runs one requested tool call. Failures are reported back to the
// model as error results instead of aborting the invocation.
func (iv *Invoker) execTool(ctx context.Context, tu anthropic.ToolUseBlock) (string, bool) {
	t, ok := iv.opts.Tools.Get(tu.Name)
	if !ok {
		return fmt.Sprintf("unknown tool %q", tu.Name), true
	}

	args := map[string]any{}
	if raw, err := json.Marshal(tu.Input); err == nil && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Sprintf("invalid tool arguments: %v", err), true
		}
	}

	out, err := t.Call(ctx, args)
	if err != nil {
		return err.Error(), true
	}
	return fmt.Sprintf("%v", out), false
}

// buildTools converts registry tools to Anthropic tool definitions.
func buildTools(tools []tool.Tool) []anthropic.ToolUnionParam {
	params := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		schema := t.Parameters()
		if properties, ok := schema["properties"]; ok {
			inputSchema.Properties = properties
		}
		if required, ok := schema["required"].([]string); ok {
			inputSchema.Required = required
		}

		p := anthropic.ToolUnionParamOfTool(inputSchema, t.Name())
		p.OfTool.Description = anthropic.String(t.Description())
		params[i] = p
	}
	return params
}
