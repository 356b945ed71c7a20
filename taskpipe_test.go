package taskpipe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/model"
)

func TestAsk_DefaultsToMockProvider(t *testing.T) {
	tp := New()

	out, err := tp.Ask(context.Background(), "assistant", map[string]any{
		"language": "english",
		"message":  "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello", out)
}

func TestAsk_UnknownTask(t *testing.T) {
	tp := New()

	_, err := tp.Ask(context.Background(), "poet", nil)
	require.Error(t, err)
	var unsupported *core.UnsupportedTaskError
	assert.ErrorAs(t, err, &unsupported)
}

func TestAsk_CachesPipelinePerTask(t *testing.T) {
	constructed := 0
	tp := New(func(o *Options) {
		o.Factory = model.MockFactory(model.NewMock("m"), &constructed)
	})

	ctx := context.Background()
	fields := map[string]any{"language": "english", "message": "hi"}
	_, err := tp.Ask(ctx, "assistant", fields)
	require.NoError(t, err)
	_, err = tp.Ask(ctx, "Assistant", fields)
	require.NoError(t, err)
	assert.Equal(t, 1, constructed)
}

func TestChat_RecordsConversation(t *testing.T) {
	tp := New()
	ctx := context.Background()

	out, err := tp.Chat(ctx, "support", "my printer is on fire")
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: my printer is on fire", out)

	history := tp.Buffer().History("support", 0, false)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestDefaultFactory_UnknownProvider(t *testing.T) {
	factory := DefaultFactory("", "")
	_, err := factory(model.Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestDefaultFactory_MockProvider(t *testing.T) {
	factory := DefaultFactory("", "")
	inv, err := factory(model.Config{Provider: "mock", ModelID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "mock", inv.Info().Provider)
}
