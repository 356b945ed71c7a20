package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/model"
	"github.com/taskpipe/taskpipe/task"
)

var _ Pipeline = (*taskPipeline)(nil)

func TestBuild_RendersInvokesNormalizes(t *testing.T) {
	mock := model.NewMock("m")
	mock.AddResponse("Hello", "Bonjour")
	b := NewBuilder(model.MockFactory(mock, nil))

	p, err := b.Build("assistant", model.Config{}, task.Options{})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{"language": "French", "message": "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", out)
}

func TestBuild_UnknownTaskFailsBeforeFactory(t *testing.T) {
	var constructed int
	b := NewBuilder(model.MockFactory(model.NewMock("m"), &constructed))

	_, err := b.Build("mystery", model.Config{}, task.Options{})
	var unsupported *core.UnsupportedTaskError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 0, constructed, "invoker must not be constructed for an invalid task")
}

func TestBuildTemplate_CustomPromptShape(t *testing.T) {
	mock := model.NewMock("m")
	b := NewBuilder(model.MockFactory(mock, nil))

	tmpl := task.NewTemplate("echo", []string{"payload"},
		core.Segment{Role: core.RoleSystem, Text: "Repeat the payload."},
		core.Segment{Role: core.RoleUser, Text: "{{.payload}}"},
	)
	p, err := b.BuildTemplate(tmpl, model.Config{Provider: "mock"})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{"payload": "ping"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: ping", out)

	_, err = p.Invoke(context.Background(), map[string]any{})
	var missing *core.MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

func TestGetOrCreate_AtMostOnceBuildPerKey(t *testing.T) {
	var constructed int
	b := NewBuilder(model.MockFactory(model.NewMock("m"), &constructed))

	p1, err := b.GetOrCreate("assistant", "", model.Config{Temperature: 0.2}, task.Options{})
	require.NoError(t, err)
	// Different parameters under the same key still return the original
	// pipeline; the cache never rebuilds silently.
	p2, err := b.GetOrCreate("assistant", "", model.Config{Temperature: 0.9, ModelID: "other"}, task.Options{IncludeExamples: true})
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, constructed)
}

func TestGetOrCreate_DistinctKeysBuildSeparately(t *testing.T) {
	var constructed int
	b := NewBuilder(model.MockFactory(model.NewMock("m"), &constructed))

	p1, err := b.GetOrCreate("assistant", "a", model.Config{}, task.Options{})
	require.NoError(t, err)
	p2, err := b.GetOrCreate("assistant", "b", model.Config{}, task.Options{})
	require.NoError(t, err)

	assert.NotSame(t, p1, p2)
	assert.Equal(t, 2, constructed)
	assert.ElementsMatch(t, []string{"a", "b"}, b.CachedKeys())
}

func TestGetOrCreate_ConcurrentFirstUse(t *testing.T) {
	var constructed int
	b := NewBuilder(model.MockFactory(model.NewMock("m"), &constructed))

	const callers = 16
	pipelines := make([]Pipeline, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			p, err := b.GetOrCreate("assistant", "shared", model.Config{}, task.Options{})
			assert.NoError(t, err)
			pipelines[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, constructed)
	for i := 1; i < callers; i++ {
		assert.Same(t, pipelines[0], pipelines[i])
	}
}

func TestGetOrCreate_ErrorNotCached(t *testing.T) {
	var constructed int
	b := NewBuilder(model.MockFactory(model.NewMock("m"), &constructed))

	_, err := b.GetOrCreate("bogus", "", model.Config{}, task.Options{})
	require.Error(t, err)
	assert.Empty(t, b.CachedKeys())
}

func TestInvoke_ModelFailureWrapped(t *testing.T) {
	mock := model.NewMock("m")
	mock.FailWith(assert.AnError)
	b := NewBuilder(model.MockFactory(mock, nil))

	p, err := b.Build("assistant", model.Config{}, task.Options{})
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), map[string]any{"language": "English", "message": "Hi"})
	var invErr *core.ModelInvocationError
	assert.ErrorAs(t, err, &invErr)
}

func TestNormalizeOutput_StructuredResponse(t *testing.T) {
	assert.Equal(t, "plain", normalizeOutput(&model.Response{Text: "plain"}))
	assert.Equal(t, `{"answer":42}`, normalizeOutput(&model.Response{Structured: map[string]any{"answer": 42}}))
	assert.Equal(t, "", normalizeOutput(nil))
	assert.Equal(t, "", normalizeOutput(&model.Response{}))
}

func TestSummarize_BindsLength(t *testing.T) {
	mock := model.NewMock("m")
	b := NewBuilder(model.MockFactory(mock, nil))

	p, err := b.Summarize(model.Config{}, "brief")
	require.NoError(t, err)

	// length comes from the binding; only text is caller-provided.
	out, err := p.Invoke(context.Background(), map[string]any{"text": "long article body"})
	require.NoError(t, err)
	assert.Contains(t, out, "long article body")
}

func TestBind_CallerFieldsWin(t *testing.T) {
	var got map[string]any
	base := Func(func(_ context.Context, fields map[string]any) (string, error) {
		got = fields
		return "", nil
	})

	p := Bind(base, map[string]any{"length": "brief", "audience": "general"})
	_, err := p.Invoke(context.Background(), map[string]any{"length": "detailed"})
	require.NoError(t, err)
	assert.Equal(t, "detailed", got["length"])
	assert.Equal(t, "general", got["audience"])
}
