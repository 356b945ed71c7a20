package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/logging"
	"github.com/taskpipe/taskpipe/model"
	"github.com/taskpipe/taskpipe/task"
)

// Pipeline is the composed unit of prompt rendering, model invocation and
// output normalization for one task/configuration. Implementations are safe
// for concurrent use.
type Pipeline interface {
	Invoke(ctx context.Context, fields map[string]any) (string, error)
}

// Func adapts an ordinary function to the Pipeline interface.
type Func func(ctx context.Context, fields map[string]any) (string, error)

// Invoke implements Pipeline.
func (f Func) Invoke(ctx context.Context, fields map[string]any) (string, error) {
	return f(ctx, fields)
}

// taskPipeline is the base pipeline: template -> invoker -> parser.
type taskPipeline struct {
	template *task.Template
	invoker  model.Invoker
	logger   logging.Logger
}

// Invoke renders the template from fields, calls the invoker and normalizes
// the result to a plain string.
func (p *taskPipeline) Invoke(ctx context.Context, fields map[string]any) (string, error) {
	prompt, err := p.template.Render(fields)
	if err != nil {
		return "", err
	}

	resp, err := p.invoker.Invoke(ctx, prompt)
	if err != nil {
		var invErr *core.ModelInvocationError
		if !errors.As(err, &invErr) {
			err = &core.ModelInvocationError{Provider: p.invoker.Info().Provider, Cause: err}
		}
		p.logger.Error("pipeline.invoke.failed", "task", p.template.Task(), "error", err.Error())
		return "", err
	}

	p.logger.Debug("pipeline.invoke.ok", "task", p.template.Task())
	return normalizeOutput(resp), nil
}

// normalizeOutput guarantees a plain string result even when the invoker
// returned a structured payload instead of text.
func normalizeOutput(resp *model.Response) string {
	if resp == nil {
		return ""
	}
	if resp.Text != "" {
		return resp.Text
	}
	if resp.Structured != nil {
		if raw, err := json.Marshal(resp.Structured); err == nil {
			return string(raw)
		}
		return fmt.Sprintf("%v", resp.Structured)
	}
	return ""
}

// bound wraps a pipeline with fixed fields merged under caller inputs.
// Caller-provided fields win on key collision.
type bound struct {
	base  Pipeline
	fixed map[string]any
}

// Invoke implements Pipeline.
func (b *bound) Invoke(ctx context.Context, fields map[string]any) (string, error) {
	merged := make(map[string]any, len(b.fixed)+len(fields))
	for k, v := range b.fixed {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return b.base.Invoke(ctx, merged)
}

// Bind returns a pipeline with fixed fields pre-applied. Caller fields
// override fixed ones on collision.
func Bind(base Pipeline, fixed map[string]any) Pipeline {
	if len(fixed) == 0 {
		return base
	}
	copied := make(map[string]any, len(fixed))
	for k, v := range fixed {
		copied[k] = v
	}
	return &bound{base: base, fixed: copied}
}
