// Package openai provides an invoker for the OpenAI Chat Completions API.
package openai

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/model"
)

// Options configure the OpenAI invoker. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Invoker wraps the OpenAI Chat Completions API behind the model.Invoker interface.
type Invoker struct {
	client *openai.Client
	opts   Options
}

var _ model.Invoker = (*Invoker)(nil)

// New creates a new OpenAI invoker using the official client.
func New(optFns ...func(o *Options)) *Invoker {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI invoker from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{client: client, opts: opts}
}

// NewFromConfig adapts a generic model.Config into an OpenAI invoker.
func NewFromConfig(cfg model.Config) *Invoker {
	return New(func(o *Options) {
		if cfg.ModelID != "" {
			o.Model = cfg.ModelID
		}
		if cfg.Temperature > 0 {
			o.Temperature = cfg.Temperature
		}
		if cfg.MaxTokens > 0 {
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
		}
	})
}

// Invoke implements model.Invoker.
func (m *Invoker) Invoke(ctx context.Context, prompt core.Prompt) (*model.Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(prompt),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &core.ModelInvocationError{Provider: "openai", Cause: err}
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return &model.Response{Text: text}, nil
}

// Info implements model.Invoker.
func (m *Invoker) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}

// buildMessages converts prompt segments into OpenAI chat messages.
func buildMessages(prompt core.Prompt) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, seg := range prompt {
		switch seg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(seg.Text))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(seg.Text))
		default:
			messages = append(messages, openai.UserMessage(seg.Text))
		}
	}
	return messages
}
