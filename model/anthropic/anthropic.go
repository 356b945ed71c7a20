// Package anthropic provides an invoker for the Anthropic Claude API.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/model"
)

// Options configures the Anthropic invoker (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Invoker wraps the Anthropic Messages API behind the model.Invoker interface.
type Invoker struct {
	client *anthropic.Client
	opts   Options
}

var _ model.Invoker = (*Invoker)(nil)

// New creates a new Anthropic invoker using the official client.
func New(optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
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

// NewFromConfig adapts a generic model.Config into an Anthropic invoker.
// Registered as the "anthropic" provider in the default factory.
func NewFromConfig(cfg model.Config) *Invoker {
	return New(func(o *Options) {
		if cfg.ModelID != "" {
			o.Model = anthropic.Model(cfg.ModelID)
		}
		if cfg.Temperature > 0 {
			o.Temperature = cfg.Temperature
		}
		if cfg.MaxTokens > 0 {
			o.MaxTokens = int64(cfg.MaxTokens)
		}
	})
}

// Invoke implements model.Invoker.
func (m *Invoker) Invoke(ctx context.Context, prompt core.Prompt) (*model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(prompt),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if system := prompt.System(); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &core.ModelInvocationError{Provider: "anthropic", Cause: err}
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return &model.Response{Text: text}, nil
}

// Info implements model.Invoker.
func (m *Invoker) Info() model.Info {
	return model.Info{Name: string(m.opts.Model), Provider: "anthropic"}
}

// buildMessages converts prompt segments to Anthropic message params.
// System segments are handled separately via the System parameter.
func buildMessages(prompt core.Prompt) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, seg := range prompt.Messages() {
		switch seg.Role {
		case core.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(seg.Text)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(seg.Text)))
		}
	}
	return messages
}
