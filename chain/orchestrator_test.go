package chain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/memory"
	"github.com/taskpipe/taskpipe/model"
	"github.com/taskpipe/taskpipe/pipeline"
)

func newTestOrchestrator(t *testing.T, mock *model.Mock) *Orchestrator {
	t.Helper()
	builder := pipeline.NewBuilder(model.MockFactory(mock, nil))
	return NewOrchestrator(builder)
}

func chatConfig() model.Config {
	return model.Config{Provider: "mock", ModelID: "test"}
}

func TestWithConversation_RecordsTurns(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.Chat(chatConfig(), ConversationOptions{ConversationID: "c1"})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{
		"language": "english",
		"message":  "hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello there", out)

	history := o.Buffer().History("c1", 0, false)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hello there", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, out, history[1].Content)
}

func TestWithConversation_InjectsHistoryOnLaterTurns(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.Chat(chatConfig(), ConversationOptions{ConversationID: "c1"})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Invoke(ctx, map[string]any{"language": "english", "message": "first turn"})
	require.NoError(t, err)

	out, err := p.Invoke(ctx, map[string]any{"language": "english", "message": "second turn"})
	require.NoError(t, err)
	assert.Contains(t, out, "Previous conversation:")
	assert.Contains(t, out, "user: first turn")
	assert.Contains(t, out, "Current message: second turn")
}

func TestWithConversation_FieldOverridesConversationID(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.Chat(chatConfig(), ConversationOptions{ConversationID: "c1"})
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), map[string]any{
		"language":       "english",
		"message":        "hi",
		"conversationId": "override",
	})
	require.NoError(t, err)

	assert.Empty(t, o.Buffer().History("c1", 0, false))
	assert.Len(t, o.Buffer().History("override", 0, false), 2)
}

func TestWithConversation_DefaultsConversationID(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.Chat(chatConfig(), ConversationOptions{})
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), map[string]any{"language": "english", "message": "hi"})
	require.NoError(t, err)
	assert.Len(t, o.Buffer().History(DefaultConversationID, 0, false), 2)
}

func TestWithConversation_NoRecordOnFailure(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	failing := pipeline.Func(func(context.Context, map[string]any) (string, error) {
		return "", errors.New("boom")
	})
	p := o.WithConversation(failing, ConversationOptions{ConversationID: "c1"})

	_, err := p.Invoke(context.Background(), map[string]any{"message": "hi"})
	require.Error(t, err)
	assert.Empty(t, o.Buffer().History("c1", 0, false))
}

func TestWithConversation_MaxHistoryKeepsRecentTurns(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	for i, content := range []string{"one", "two", "three", "four"} {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		o.Buffer().AddMessage("c1", memory.Message{Role: role, Content: content})
	}

	var captured map[string]any
	capture := pipeline.Func(func(_ context.Context, fields map[string]any) (string, error) {
		captured = fields
		return "ok", nil
	})
	p := o.WithConversation(capture, ConversationOptions{ConversationID: "c1", MaxHistory: 2})

	_, err := p.Invoke(context.Background(), map[string]any{"message": "hi"})
	require.NoError(t, err)

	history, ok := captured["history"].(string)
	require.True(t, ok)
	assert.Equal(t, "user: three\nassistant: four", history)
}

func TestWithConversation_DisabledReturnsBase(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	base := pipeline.Func(func(context.Context, map[string]any) (string, error) { return "ok", nil })
	p := o.WithConversation(base, ConversationOptions{Disabled: true, ConversationID: "c1"})

	_, err := p.Invoke(context.Background(), map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.Empty(t, o.Buffer().History("c1", 0, false))
}

func TestLastConfigFallback(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	cfg := model.Config{Provider: "mock", ModelID: "m1", Temperature: 0.3}
	_, err := o.Chat(cfg, ConversationOptions{})
	require.NoError(t, err)
	assert.Equal(t, cfg, o.LastConfig())

	// A zero config reuses the last one instead of building with nothing.
	_, err = o.Sequential(model.Config{}, []Step{{Task: "assistant", Fields: map[string]any{"language": "english"}}})
	require.NoError(t, err)
	assert.Equal(t, cfg, o.LastConfig())
}

func TestSequential_OutputFlowsIntoNextStep(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.Sequential(chatConfig(), []Step{
		{Task: "assistant", Fields: map[string]any{"language": "english"}},
		{Task: "summarizer", Fields: map[string]any{"length": "brief"}, InputField: "text"},
	})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{"message": "tell me about Go"})
	require.NoError(t, err)
	// The second step's prompt embeds the first step's output.
	assert.Contains(t, out, "Mock response to: tell me about Go")
	assert.Contains(t, out, "Text to summarize:")
}

func TestSequential_UnknownTaskFailsAtBuild(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	_, err := o.Sequential(chatConfig(), []Step{{Task: "no_such_task"}})
	require.Error(t, err)
	var unsupported *core.UnsupportedTaskError
	assert.ErrorAs(t, err, &unsupported)
}

func TestSequential_RequiresSteps(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	_, err := o.Sequential(chatConfig(), nil)
	assert.Error(t, err)
}

func TestConditional_RoutesAndFallback(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	routes := map[string]pipeline.Pipeline{
		"a": pipeline.Func(func(context.Context, map[string]any) (string, error) { return "route a", nil }),
		"b": pipeline.Func(func(context.Context, map[string]any) (string, error) { return "route b", nil }),
	}
	fallback := pipeline.Func(func(context.Context, map[string]any) (string, error) { return "fallback", nil })

	route := func(fields map[string]any) string {
		key, _ := fields["kind"].(string)
		return key
	}

	p := o.Conditional(route, routes, fallback)
	ctx := context.Background()

	out, err := p.Invoke(ctx, map[string]any{"kind": "b"})
	require.NoError(t, err)
	assert.Equal(t, "route b", out)

	out, err = p.Invoke(ctx, map[string]any{"kind": "zzz"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestConditional_NoRouteWithoutFallback(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p := o.Conditional(func(map[string]any) string { return "missing" }, nil, nil)
	_, err := p.Invoke(context.Background(), nil)
	require.Error(t, err)

	var noRoute *core.NoRouteError
	require.ErrorAs(t, err, &noRoute)
	assert.Equal(t, "missing", noRoute.Key)
}

func TestWithTools_BindsDescriptions(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	var captured map[string]any
	capture := pipeline.Func(func(_ context.Context, fields map[string]any) (string, error) {
		captured = fields
		return "ok", nil
	})

	p := o.WithTools(capture, "calculator", "unit_converter")
	_, err := p.Invoke(context.Background(), map[string]any{"message": "hi"})
	require.NoError(t, err)

	tools, ok := captured["tools"].(string)
	require.True(t, ok)
	assert.Contains(t, tools, "calculator:")
	assert.Contains(t, tools, "unit_converter:")
	assert.NotContains(t, tools, "web_search")
}

func TestWithTools_UnknownNamesSkipped(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	var captured map[string]any
	capture := pipeline.Func(func(_ context.Context, fields map[string]any) (string, error) {
		captured = fields
		return "ok", nil
	})

	p := o.WithTools(capture, "calculator", "no_such_tool")
	_, err := p.Invoke(context.Background(), nil)
	require.NoError(t, err)

	tools := captured["tools"].(string)
	assert.Contains(t, tools, "calculator:")
	assert.Equal(t, 1, strings.Count(tools, "\n- "), "single tool line expected")
}

func TestSummarizationPipeline_SummaryOnly(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.SummarizationPipeline(chatConfig(), SummarizationOptions{Length: "brief"})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{"text": "a long article"})
	require.NoError(t, err)
	assert.Contains(t, out, "a long article")
}

func TestSummarizationPipeline_WithAnalysis(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.SummarizationPipeline(chatConfig(), SummarizationOptions{ExtractKeywords: true})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{"text": "a long article"})
	require.NoError(t, err)
	// Second stage is the analyst step, whose prompt ends with the question.
	assert.Contains(t, out, "key topics and themes")
}

func TestTranslationPipeline_PlainTranslation(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.TranslationPipeline(chatConfig(), TranslationOptions{})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{
		"text":           "hola",
		"sourceLanguage": "spanish",
		"targetLanguage": "english",
		"context":        "greeting",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "hola")
	assert.NotContains(t, out, "Verification:")
}

func TestTranslationPipeline_VerifiedRoundTrip(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.TranslationPipeline(chatConfig(), TranslationOptions{Verify: true})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{
		"text":           "hola",
		"sourceLanguage": "spanish",
		"targetLanguage": "english",
		"context":        "greeting",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Translation: ")
	assert.Contains(t, out, "Verification: ")
	// The verification step sees the original text and the round-tripped
	// translation.
	assert.Contains(t, out, "Original: hola")
	assert.Contains(t, out, "Is the meaning preserved?")
	// translate, back-translate, verify
	assert.Equal(t, 3, mock.Calls())
}

func TestCodeReviewPipeline(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.CodeReviewPipeline(chatConfig(), CodeReviewOptions{Language: "Go", Aspects: []string{"style"}})
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{"code": "fmt.Println(42)"})
	require.NoError(t, err)
	assert.Contains(t, out, "Code to review:")
	assert.Contains(t, out, "fmt.Println(42)")

	_, err = p.Invoke(context.Background(), map[string]any{})
	var missing *core.MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

func TestCodeExplanationPipeline(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.CodeExplanationPipeline(chatConfig())
	require.NoError(t, err)

	out, err := p.Invoke(context.Background(), map[string]any{"code": "sort.Ints(xs)"})
	require.NoError(t, err)
	assert.Contains(t, out, "Code to explain:")
	assert.Contains(t, out, "sort.Ints(xs)")
}

func TestRun_FormatsModelFailure(t *testing.T) {
	mock := model.NewMock("test")
	mock.FailWith(errors.New("connection refused"))
	o := newTestOrchestrator(t, mock)

	p, err := o.builder.Chat(chatConfig())
	require.NoError(t, err)

	out, err := o.Run(context.Background(), p, map[string]any{"language": "english", "message": "hi"})
	require.NoError(t, err)
	assert.Contains(t, out, "Sorry, I could not get a response from mock")
}

func TestRun_OtherErrorsPropagate(t *testing.T) {
	mock := model.NewMock("test")
	o := newTestOrchestrator(t, mock)

	p, err := o.builder.Chat(chatConfig())
	require.NoError(t, err)

	// Missing required field fails validation, which Run must not mask.
	_, err = o.Run(context.Background(), p, map[string]any{"language": "english"})
	require.Error(t, err)
	var missing *core.MissingFieldError
	assert.ErrorAs(t, err, &missing)
}
