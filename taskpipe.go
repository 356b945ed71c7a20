// Package taskpipe provides a high-level façade over the task registry,
// pipeline builder, conversation memory, tool registry and chain
// orchestrator. Most applications interact with this package by:
//  1. Creating a TaskPipe via New() (optionally overriding the model
//     factory, tool registry or conversation buffer)
//  2. Asking tasks directly (Ask) or chatting with memory (Chat)
//  3. Reaching for Orchestrator() when they need multi-step chains
//
// All defaults are safe for local development: without a configured
// provider the façade runs against a deterministic mock model.
package taskpipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskpipe/taskpipe/chain"
	"github.com/taskpipe/taskpipe/logging"
	"github.com/taskpipe/taskpipe/memory"
	"github.com/taskpipe/taskpipe/model"
	"github.com/taskpipe/taskpipe/model/anthropic"
	"github.com/taskpipe/taskpipe/model/bedrock"
	"github.com/taskpipe/taskpipe/model/openai"
	"github.com/taskpipe/taskpipe/pipeline"
	"github.com/taskpipe/taskpipe/task"
	"github.com/taskpipe/taskpipe/tool"
)

// Options configures the TaskPipe instance.
type Options struct {
	// ModelConfig is the default model used by Ask and Chat.
	ModelConfig model.Config

	// Factory constructs invokers for pipelines. Defaults to
	// DefaultFactory, which resolves providers by name.
	Factory model.Factory

	// AWSRegion and AWSProfile feed the Bedrock credential chain when the
	// default factory builds a Bedrock invoker.
	AWSRegion  string
	AWSProfile string

	// Tools overrides the built-in tool registry.
	Tools *tool.Registry

	// Buffer overrides the default in-memory conversation buffer.
	Buffer *memory.ConversationBuffer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TaskPipe is the high-level façade aggregating the registry, builder and
// orchestrator.
type TaskPipe struct {
	opts         Options
	registry     *task.Registry
	builder      *pipeline.Builder
	orchestrator *chain.Orchestrator
}

// New creates a TaskPipe with optional overrides. Any unset collaborator is
// initialized with its in-memory default.
func New(optFns ...func(o *Options)) *TaskPipe {
	opts := Options{
		ModelConfig: model.Config{Provider: "mock", ModelID: "default"},
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Factory == nil {
		opts.Factory = DefaultFactory(opts.AWSRegion, opts.AWSProfile)
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry()
	}
	if opts.Buffer == nil {
		opts.Buffer = memory.NewConversationBuffer(memory.WithBufferLogger(opts.Logger))
	}

	registry := task.NewRegistry()
	builder := pipeline.NewBuilder(opts.Factory,
		pipeline.WithRegistry(registry),
		pipeline.WithLogger(opts.Logger),
	)
	orchestrator := chain.NewOrchestrator(builder,
		chain.WithBuffer(opts.Buffer),
		chain.WithToolRegistry(opts.Tools),
		chain.WithLogger(opts.Logger),
	)

	return &TaskPipe{
		opts:         opts,
		registry:     registry,
		builder:      builder,
		orchestrator: orchestrator,
	}
}

// DefaultFactory resolves a provider name to its invoker implementation.
// Unknown providers fail; an empty provider selects the mock.
func DefaultFactory(awsRegion, awsProfile string) model.Factory {
	return func(cfg model.Config) (model.Invoker, error) {
		switch strings.ToLower(cfg.Provider) {
		case "anthropic":
			return anthropic.NewFromConfig(cfg), nil
		case "openai":
			return openai.NewFromConfig(cfg), nil
		case "bedrock":
			return bedrock.New(context.Background(), func(o *bedrock.Options) {
				if cfg.ModelID != "" {
					o.ModelID = cfg.ModelID
				}
				if awsRegion != "" {
					o.Region = awsRegion
				}
				o.Profile = awsProfile
				if cfg.Temperature != 0 {
					o.Temperature = cfg.Temperature
				}
				if cfg.MaxTokens != 0 {
					o.MaxTokens = cfg.MaxTokens
				}
			})
		case "mock", "":
			return model.NewMock(cfg.ModelID), nil
		default:
			return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
		}
	}
}

// Registry exposes the task registry.
func (tp *TaskPipe) Registry() *task.Registry { return tp.registry }

// Builder exposes the pipeline builder and its cache.
func (tp *TaskPipe) Builder() *pipeline.Builder { return tp.builder }

// Orchestrator exposes the chain orchestrator.
func (tp *TaskPipe) Orchestrator() *chain.Orchestrator { return tp.orchestrator }

// Tools exposes the tool registry.
func (tp *TaskPipe) Tools() *tool.Registry { return tp.opts.Tools }

// Buffer exposes the conversation buffer backing Chat.
func (tp *TaskPipe) Buffer() *memory.ConversationBuffer { return tp.opts.Buffer }

// Ask runs the named task once with the given fields using the default
// model configuration. The pipeline is cached per task, so repeated calls
// reuse the constructed invoker.
func (tp *TaskPipe) Ask(ctx context.Context, taskName string, fields map[string]any) (string, error) {
	p, err := tp.builder.GetOrCreate(taskName, "", tp.opts.ModelConfig, task.Options{})
	if err != nil {
		return "", err
	}
	return tp.orchestrator.Run(ctx, p, fields)
}

// Chat sends a message on the named conversation, injecting prior turns and
// recording the exchange. An empty conversationID uses the default
// conversation; language defaults to english.
func (tp *TaskPipe) Chat(ctx context.Context, conversationID, message string) (string, error) {
	p, err := tp.orchestrator.Chat(tp.opts.ModelConfig, chain.ConversationOptions{
		ConversationID: conversationID,
	})
	if err != nil {
		return "", err
	}
	return tp.orchestrator.Run(ctx, p, map[string]any{
		"language": "english",
		"message":  message,
	})
}
