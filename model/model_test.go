package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskpipe/taskpipe/core"
)

var _ Invoker = (*Mock)(nil)

func TestMock_CannedAndEcho(t *testing.T) {
	m := NewMock("test")
	m.AddResponse("Hello", "Hi there")

	resp, err := m.Invoke(context.Background(), core.Prompt{
		{Role: core.RoleSystem, Text: "be nice"},
		{Role: core.RoleUser, Text: "Hello"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "Hi there", resp.Text)

	resp, err = m.Invoke(context.Background(), core.Prompt{{Role: core.RoleUser, Text: "Unseen"}})
	assert.NoError(t, err)
	assert.Equal(t, "Mock response to: Unseen", resp.Text)
	assert.Equal(t, 2, m.Calls())
}

func TestMock_Failure(t *testing.T) {
	m := NewMock("test")
	cause := errors.New("throttled")
	m.FailWith(cause)

	_, err := m.Invoke(context.Background(), core.Prompt{{Role: core.RoleUser, Text: "x"}})
	var invErr *core.ModelInvocationError
	assert.ErrorAs(t, err, &invErr)
	assert.ErrorIs(t, err, cause)
}

func TestMockFactory_CountsConstruction(t *testing.T) {
	var constructed int
	factory := MockFactory(NewMock("counted"), &constructed)

	inv1, err := factory(Config{})
	assert.NoError(t, err)
	inv2, err := factory(Config{Provider: "mock"})
	assert.NoError(t, err)
	assert.Same(t, inv1, inv2)
	assert.Equal(t, 2, constructed)
}
