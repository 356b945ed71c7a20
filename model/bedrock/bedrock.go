// Package bedrock provides an invoker for AWS Bedrock via the Converse API.
package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/model"
)

// Options configures the Bedrock invoker. Region and Profile feed the shared
// AWS config chain; the remaining fields map onto Converse inference settings.
type Options struct {
	ModelID     string
	Region      string
	Profile     string
	Temperature float64
	MaxTokens   int
}

// Invoker wraps the Bedrock runtime Converse API behind model.Invoker.
type Invoker struct {
	client *bedrockruntime.Client
	opts   Options
}

var _ model.Invoker = (*Invoker)(nil)

// New creates a Bedrock invoker, resolving credentials through the default
// AWS config chain (env, shared config, instance role).
func New(ctx context.Context, optFns ...func(o *Options)) (*Invoker, error) {
	opts := Options{
		ModelID:     "anthropic.claude-3-haiku-20240307-v1:0",
		Region:      "us-east-1",
		Temperature: 0.7,
		MaxTokens:   1000,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Invoker{client: bedrockruntime.NewFromConfig(cfg), opts: opts}, nil
}

// NewFromClient creates a Bedrock invoker from an existing runtime client.
func NewFromClient(client *bedrockruntime.Client, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		ModelID:     "anthropic.claude-3-haiku-20240307-v1:0",
		Temperature: 0.7,
		MaxTokens:   1000,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{client: client, opts: opts}
}

// Invoke implements model.Invoker.
func (m *Invoker) Invoke(ctx context.Context, prompt core.Prompt) (*model.Response, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(m.opts.ModelID),
		Messages: buildMessages(prompt),
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(m.opts.Temperature)),
			MaxTokens:   aws.Int32(int32(m.opts.MaxTokens)),
		},
	}
	if system := prompt.System(); system != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}

	out, err := m.client.Converse(ctx, input)
	if err != nil {
		return nil, &core.ModelInvocationError{Provider: "bedrock", Cause: err}
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, &core.ModelInvocationError{Provider: "bedrock", Cause: fmt.Errorf("unexpected output type %T", out.Output)}
	}
	var text string
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}
	return &model.Response{Text: text}, nil
}

// Info implements model.Invoker.
func (m *Invoker) Info() model.Info {
	return model.Info{Name: m.opts.ModelID, Provider: "bedrock"}
}

// buildMessages converts non-system prompt segments into Converse messages.
func buildMessages(prompt core.Prompt) []types.Message {
	var messages []types.Message
	for _, seg := range prompt.Messages() {
		role := types.ConversationRoleUser
		if seg.Role == core.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: seg.Text}},
		})
	}
	return messages
}
