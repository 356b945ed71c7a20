package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrompt_SystemAndMessages(t *testing.T) {
	p := Prompt{
		{Role: RoleSystem, Text: "You are concise."},
		{Role: RoleUser, Text: "Hello"},
		{Role: RoleSystem, Text: "Respond in English."},
	}

	assert.Equal(t, "You are concise.\nRespond in English.", p.System())
	msgs := p.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "system: You are concise.\nuser: Hello\nsystem: Respond in English.", p.Text())
}

func TestErrors_Taxonomy(t *testing.T) {
	unsupported := &UnsupportedTaskError{Task: "planner", Valid: []string{"assistant", "summarizer"}}
	assert.Contains(t, unsupported.Error(), "planner")
	assert.Contains(t, unsupported.Error(), "assistant, summarizer")

	cause := errors.New("connection reset")
	inv := &ModelInvocationError{Provider: "mock", Cause: cause}
	assert.ErrorIs(t, inv, cause)
	assert.Contains(t, inv.Error(), "mock")

	persist := &PersistenceError{Path: "/tmp/x.json", Cause: cause}
	assert.ErrorIs(t, persist, cause)

	var target *NoRouteError
	err := error(&NoRouteError{Key: "billing"})
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "billing", target.Key)
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
