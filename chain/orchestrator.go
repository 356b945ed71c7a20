// Package chain composes task pipelines into higher-level flows:
// conversational wrappers backed by a conversation buffer, sequential
// multi-step chains, conditional routing, tool binding and a canned
// summarization flow.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/logging"
	"github.com/taskpipe/taskpipe/memory"
	"github.com/taskpipe/taskpipe/model"
	"github.com/taskpipe/taskpipe/pipeline"
	"github.com/taskpipe/taskpipe/task"
	"github.com/taskpipe/taskpipe/tool"
)

// DefaultConversationID is used when neither the wrap options nor the call
// fields name a conversation.
const DefaultConversationID = "default"

// Orchestrator builds composite pipelines on top of a pipeline builder,
// optionally wiring in conversation memory and a tool registry.
type Orchestrator struct {
	builder *pipeline.Builder
	buffer  *memory.ConversationBuffer
	tools   *tool.Registry
	logger  logging.Logger

	cfgMu   sync.Mutex
	lastCfg model.Config
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBuffer sets the conversation buffer used by conversational wraps.
func WithBuffer(b *memory.ConversationBuffer) Option {
	return func(o *Orchestrator) { o.buffer = b }
}

// WithToolRegistry sets the registry consulted by WithTools.
func WithToolRegistry(r *tool.Registry) Option {
	return func(o *Orchestrator) { o.tools = r }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator returns an orchestrator over builder. Without options it
// creates its own conversation buffer and the default tool registry.
func NewOrchestrator(builder *pipeline.Builder, opts ...Option) *Orchestrator {
	o := &Orchestrator{builder: builder}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrNoOp(o.logger)
	if o.buffer == nil {
		o.buffer = memory.NewConversationBuffer(memory.WithBufferLogger(o.logger))
	}
	if o.tools == nil {
		o.tools = tool.NewRegistry()
	}
	return o
}

// Buffer exposes the conversation buffer backing conversational wraps.
func (o *Orchestrator) Buffer() *memory.ConversationBuffer { return o.buffer }

// Tools exposes the tool registry consulted by WithTools.
func (o *Orchestrator) Tools() *tool.Registry { return o.tools }

// resolveConfig returns cfg, falling back to the last non-zero config a
// chain was built with so callers can omit it on subsequent builds.
func (o *Orchestrator) resolveConfig(cfg model.Config) model.Config {
	o.cfgMu.Lock()
	defer o.cfgMu.Unlock()
	if cfg == (model.Config{}) {
		return o.lastCfg
	}
	o.lastCfg = cfg
	return cfg
}

// LastConfig reports the model config most recently used to build a chain.
func (o *Orchestrator) LastConfig() model.Config {
	o.cfgMu.Lock()
	defer o.cfgMu.Unlock()
	return o.lastCfg
}

// ConversationOptions tunes WithConversation.
type ConversationOptions struct {
	// Disabled returns the base pipeline unchanged, so callers can toggle
	// memory per build without branching.
	Disabled bool
	// ConversationID routes messages to a named conversation. The
	// "conversationId" call field overrides it; DefaultConversationID
	// applies when both are empty.
	ConversationID string
	// MaxHistory bounds how many recent messages are injected as the
	// "history" field. Zero means all retained messages.
	MaxHistory int
	// InputField is the call field holding the user's message.
	// Defaults to "message".
	InputField string
}

// WithConversation wraps base so every invocation sees prior turns and
// successful turns are recorded. The rendered history is injected as the
// "history" field, but only when the conversation already has messages; the
// user message and the reply are stored only after base succeeds, so a
// failed invocation leaves the conversation untouched.
func (o *Orchestrator) WithConversation(base pipeline.Pipeline, opts ConversationOptions) pipeline.Pipeline {
	if opts.Disabled {
		return base
	}
	inputField := opts.InputField
	if inputField == "" {
		inputField = "message"
	}
	return pipeline.Func(func(ctx context.Context, fields map[string]any) (string, error) {
		id := opts.ConversationID
		if v, ok := fields["conversationId"].(string); ok && v != "" {
			id = v
		}
		if id == "" {
			id = DefaultConversationID
		}

		merged := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			merged[k] = v
		}
		if history := o.recentHistory(id, opts.MaxHistory); history != "" {
			merged["history"] = history
			// Built-in templates take a single user message, so the
			// history is folded into it as well.
			if userMsg, ok := merged[inputField].(string); ok {
				merged[inputField] = "Previous conversation:\n" + history + "\n\nCurrent message: " + userMsg
			}
		}

		out, err := base.Invoke(ctx, merged)
		if err != nil {
			return "", err
		}

		if userMsg, ok := fields[inputField].(string); ok && userMsg != "" {
			o.buffer.AddMessage(id, memory.Message{Role: "user", Content: userMsg})
		}
		o.buffer.AddMessage(id, memory.Message{Role: "assistant", Content: out})
		o.logger.Debug("conversation turn recorded", "conversationId", id)
		return out, nil
	})
}

// recentHistory renders the last maxMessages messages in chronological
// order, one "role: content" line per message.
func (o *Orchestrator) recentHistory(conversationID string, maxMessages int) string {
	msgs := o.buffer.History(conversationID, maxMessages, true)
	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		lines[len(msgs)-1-i] = msg.Role + ": " + msg.Content
	}
	return strings.Join(lines, "\n")
}

// Chat builds the assistant pipeline and wraps it conversationally.
func (o *Orchestrator) Chat(cfg model.Config, opts ConversationOptions) (pipeline.Pipeline, error) {
	base, err := o.builder.Chat(o.resolveConfig(cfg))
	if err != nil {
		return nil, err
	}
	return o.WithConversation(base, opts), nil
}

// Step describes one stage of a sequential chain.
type Step struct {
	// Task names the pipeline to run.
	Task string
	// Fields are fixed inputs for this step; caller-provided or chained
	// values with the same name win.
	Fields map[string]any
	// Options tunes the step's template.
	Options task.Options
	// InputField is where the previous step's output lands. Defaults to
	// "message". Ignored for the first step, which sees the caller's
	// fields directly.
	InputField string
	// Config overrides the chain-level model config when Provider or
	// ModelID is set.
	Config model.Config
}

// Sequential builds a pipeline running steps in order. Each step after the
// first receives the previous step's output under its InputField, merged
// over the step's fixed Fields. At least one step is required.
func (o *Orchestrator) Sequential(cfg model.Config, steps []Step) (pipeline.Pipeline, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("sequential chain requires at least one step")
	}
	cfg = o.resolveConfig(cfg)
	built := make([]pipeline.Pipeline, len(steps))
	for i, step := range steps {
		stepCfg := cfg
		if step.Config.Provider != "" || step.Config.ModelID != "" {
			stepCfg = step.Config
		}
		p, err := o.builder.Build(step.Task, stepCfg, step.Options)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Task, err)
		}
		built[i] = p
	}
	return pipeline.Func(func(ctx context.Context, fields map[string]any) (string, error) {
		var out string
		for i, p := range built {
			var stepFields map[string]any
			if i == 0 {
				stepFields = mergeFields(steps[i].Fields, fields)
			} else {
				inputField := steps[i].InputField
				if inputField == "" {
					inputField = "message"
				}
				stepFields = mergeFields(steps[i].Fields, nil)
				stepFields[inputField] = out
			}
			var err error
			out, err = p.Invoke(ctx, stepFields)
			if err != nil {
				return "", fmt.Errorf("step %d (%s): %w", i, steps[i].Task, err)
			}
			o.logger.Debug("chain step completed", "step", i, "task", steps[i].Task)
		}
		return out, nil
	}), nil
}

// RouteFunc inspects the call fields and names the route to take.
type RouteFunc func(fields map[string]any) string

// Conditional builds a pipeline that dispatches each call to the route
// chosen by route. An unknown route falls back to fallback when non-nil and
// fails with a NoRouteError otherwise.
func (o *Orchestrator) Conditional(route RouteFunc, routes map[string]pipeline.Pipeline, fallback pipeline.Pipeline) pipeline.Pipeline {
	return pipeline.Func(func(ctx context.Context, fields map[string]any) (string, error) {
		key := route(fields)
		if p, ok := routes[key]; ok {
			o.logger.Debug("conditional route taken", "route", key)
			return p.Invoke(ctx, fields)
		}
		if fallback != nil {
			o.logger.Debug("conditional fallback taken", "route", key)
			return fallback.Invoke(ctx, fields)
		}
		return "", &core.NoRouteError{Key: key}
	})
}

// WithTools binds tool descriptions to base under the "tools" field so the
// model can reason about them. Names not present in the registry are
// skipped; no names binds every registered tool. The tools are described,
// not executed: running them remains the caller's decision.
func (o *Orchestrator) WithTools(base pipeline.Pipeline, names ...string) pipeline.Pipeline {
	tools := o.tools.GetMany(names...)
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
	}
	return pipeline.Bind(base, map[string]any{"tools": b.String()})
}

// SummarizationOptions tunes SummarizationPipeline.
type SummarizationOptions struct {
	// Length is the summarizer length hint ("short", "medium", "long").
	// Defaults to "detailed" analysis-friendly output when empty.
	Length string
	// ExtractKeywords adds an analysis step that pulls key topics out of
	// the summary.
	ExtractKeywords bool
	// GenerateTitle asks the analysis step for a title as well.
	GenerateTitle bool
}

// SummarizationPipeline builds a summarizer chain: a summary step, plus an
// optional analysis step over the summary when keywords or a title are
// requested.
func (o *Orchestrator) SummarizationPipeline(cfg model.Config, opts SummarizationOptions) (pipeline.Pipeline, error) {
	length := opts.Length
	if length == "" {
		length = "detailed"
	}
	steps := []Step{{
		Task:   "summarizer",
		Fields: map[string]any{"length": length},
	}}
	if opts.ExtractKeywords || opts.GenerateTitle {
		question := "What are the key topics and themes?"
		if opts.GenerateTitle {
			question = "What are the key topics and themes, and what would be a good title?"
		}
		steps = append(steps, Step{
			Task: "analyst",
			Fields: map[string]any{
				"focus":    "text_analysis",
				"audience": "general",
				"question": question,
			},
			InputField: "data",
		})
	}
	// The caller supplies "text"; the summary flows into the analyst's
	// "data" field.
	base, err := o.Sequential(cfg, steps)
	if err != nil {
		return nil, err
	}
	return base, nil
}

// TranslationOptions tunes TranslationPipeline.
type TranslationOptions struct {
	// Verify adds a verification pass: the translation is translated back
	// to the source language and a model compares the round-trip result
	// with the original text.
	Verify bool
}

// TranslationPipeline builds the translator pipeline, optionally extended
// with back-translation verification. Without verification the plain
// translator pipeline is returned. With it, the output carries both the
// translation and the verification verdict.
func (o *Orchestrator) TranslationPipeline(cfg model.Config, opts TranslationOptions) (pipeline.Pipeline, error) {
	cfg = o.resolveConfig(cfg)
	translate, err := o.builder.Build("translator", cfg, task.Options{})
	if err != nil {
		return nil, err
	}
	if !opts.Verify {
		return translate, nil
	}

	verifyTmpl := task.NewTemplate("translation_verification", []string{"original", "backTranslation"},
		core.Segment{Role: core.RoleSystem, Text: "Compare two texts and report whether the meaning is preserved."},
		core.Segment{Role: core.RoleUser, Text: "Original: {{.original}}\nBack-translated: {{.backTranslation}}\n\nIs the meaning preserved?"},
	)
	verify, err := o.builder.BuildTemplate(verifyTmpl, cfg)
	if err != nil {
		return nil, err
	}

	return pipeline.Func(func(ctx context.Context, fields map[string]any) (string, error) {
		translation, err := translate.Invoke(ctx, fields)
		if err != nil {
			return "", err
		}

		// Round-trip with source and target swapped.
		backTranslation, err := translate.Invoke(ctx, map[string]any{
			"text":           translation,
			"sourceLanguage": fields["targetLanguage"],
			"targetLanguage": fields["sourceLanguage"],
			"context":        "Back translation for verification",
		})
		if err != nil {
			return "", err
		}

		verification, err := verify.Invoke(ctx, map[string]any{
			"original":        fields["text"],
			"backTranslation": backTranslation,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Translation: %s\n\nVerification: %s", translation, verification), nil
	}), nil
}

// defaultReviewAspects are reviewed when the caller names none.
var defaultReviewAspects = []string{"syntax", "style", "security", "performance", "best_practices"}

// CodeReviewOptions tunes CodeReviewPipeline.
type CodeReviewOptions struct {
	// Language is the programming language under review. Defaults to
	// "Python".
	Language string
	// Aspects selects what the review covers. Defaults to
	// defaultReviewAspects.
	Aspects []string
}

// CodeReviewPipeline builds a structured code review pipeline. The caller
// supplies the code under the "code" field.
func (o *Orchestrator) CodeReviewPipeline(cfg model.Config, opts CodeReviewOptions) (pipeline.Pipeline, error) {
	language := opts.Language
	if language == "" {
		language = "Python"
	}
	aspects := opts.Aspects
	if len(aspects) == 0 {
		aspects = defaultReviewAspects
	}

	system := fmt.Sprintf(`You are an expert code reviewer for %s.

Review the following code and provide feedback on:
%s

Provide your review in this format:
1. **Overall Assessment**: [Brief summary]
2. **Specific Issues**: [List of issues found]
3. **Suggestions for Improvement**: [Specific suggestions]
4. **Security Considerations**: [Any security issues]
5. **Performance Notes**: [Performance implications]

Be thorough but constructive in your feedback.`, language, strings.Join(aspects, ", "))

	tmpl := task.NewTemplate("code_review", []string{"code"},
		core.Segment{Role: core.RoleSystem, Text: system},
		core.Segment{Role: core.RoleUser, Text: "Code to review:\n\n{{.code}}"},
	)
	return o.builder.BuildTemplate(tmpl, o.resolveConfig(cfg))
}

// CodeExplanationPipeline builds a pipeline explaining the code supplied
// under the "code" field, step by step.
func (o *Orchestrator) CodeExplanationPipeline(cfg model.Config) (pipeline.Pipeline, error) {
	system := `You are an expert programming educator.

Explain the provided code in detail, covering:
1. What the code does
2. How it works (step by step)
3. Key algorithms or patterns used
4. Time and space complexity (if applicable)
5. Potential edge cases
6. Alternative approaches

Make your explanation clear and accessible to developers of all levels.`

	tmpl := task.NewTemplate("code_explanation", []string{"code"},
		core.Segment{Role: core.RoleSystem, Text: system},
		core.Segment{Role: core.RoleUser, Text: "Code to explain:\n\n{{.code}}"},
	)
	return o.builder.BuildTemplate(tmpl, o.resolveConfig(cfg))
}

// Run invokes p and folds failures into a user-presentable string. Model
// invocation failures become an apology naming the provider; every other
// failure is surfaced as the error.
func (o *Orchestrator) Run(ctx context.Context, p pipeline.Pipeline, fields map[string]any) (string, error) {
	out, err := p.Invoke(ctx, fields)
	if err == nil {
		return out, nil
	}
	var invErr *core.ModelInvocationError
	if errors.As(err, &invErr) {
		o.logger.Error("model invocation failed", "provider", invErr.Provider, "error", invErr.Cause)
		return fmt.Sprintf("Sorry, I could not get a response from %s. Please try again.", invErr.Provider), nil
	}
	return "", err
}

func mergeFields(fixed, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(fixed)+len(overrides))
	for k, v := range fixed {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
