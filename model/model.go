package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskpipe/taskpipe/core"
)

// Config carries the model parameters a pipeline binds at build time.
type Config struct {
	Provider    string  `json:"provider,omitempty"` // "anthropic", "openai", "bedrock", "mock"
	ModelID     string  `json:"model_id,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Response is the normalized result of a single generation. Text carries the
// plain completion; Structured is set instead when a provider returns a
// non-text payload and is flattened by the pipeline's output parser.
type Response struct {
	Text       string `json:"text"`
	Structured any    `json:"structured,omitempty"`
}

// Info contains metadata about an invoker implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Invoker turns a rendered prompt into generated text. Implementations own
// their transport, auth and retry behavior; callers only see the response or
// a failure.
type Invoker interface {
	Invoke(ctx context.Context, prompt core.Prompt) (*Response, error)

	// Info returns information about the invoker implementation.
	Info() Info
}

// Factory constructs an Invoker from a Config. Pipelines build invokers
// through a Factory so cache hits provably skip construction.
type Factory func(cfg Config) (Invoker, error)

// Mock is a lightweight in-memory Invoker useful for tests and examples.
// Responses are keyed by the text of the last non-system segment; unmatched
// prompts get a deterministic echo.
type Mock struct {
	info      Info
	responses map[string]string
	failWith  error
	calls     int
}

// NewMock constructs a Mock invoker.
func NewMock(name string) *Mock {
	return &Mock{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input.
func (m *Mock) AddResponse(input, response string) { m.responses[input] = response }

// FailWith makes every subsequent Invoke return err.
func (m *Mock) FailWith(err error) { m.failWith = err }

// Calls reports how many times Invoke has run.
func (m *Mock) Calls() int { return m.calls }

// Invoke implements Invoker.
func (m *Mock) Invoke(ctx context.Context, prompt core.Prompt) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.calls++
	if m.failWith != nil {
		return nil, &core.ModelInvocationError{Provider: "mock", Cause: m.failWith}
	}
	var input string
	if msgs := prompt.Messages(); len(msgs) > 0 {
		input = msgs[len(msgs)-1].Text
	}
	if resp, ok := m.responses[input]; ok {
		return &Response{Text: resp}, nil
	}
	return &Response{Text: fmt.Sprintf("Mock response to: %s", strings.TrimSpace(input))}, nil
}

// Info implements Invoker.
func (m *Mock) Info() Info { return m.info }

// MockFactory returns a Factory producing the given invoker and increments
// *constructed on every call. Tests use it to assert the at-most-once
// construction property of the pipeline cache.
func MockFactory(inv Invoker, constructed *int) Factory {
	return func(Config) (Invoker, error) {
		if constructed != nil {
			*constructed++
		}
		return inv, nil
	}
}
