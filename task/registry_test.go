package task

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpipe/taskpipe/core"
)

// sampleFields returns a fields map covering every required input of a task
// with distinctive values so tests can look for them verbatim.
func sampleFields(inputs []string) map[string]any {
	fields := make(map[string]any, len(inputs))
	for i, name := range inputs {
		fields[name] = fmt.Sprintf("value-%s-%d", name, i)
	}
	return fields
}

func TestRegistry_AllTasksRenderProvidedValues(t *testing.T) {
	r := NewRegistry()
	for _, info := range r.List() {
		t.Run(info.Name, func(t *testing.T) {
			tmpl, err := r.Template(info.Name, Options{})
			require.NoError(t, err)

			fields := sampleFields(tmpl.RequiredInputs())
			prompt, err := tmpl.Render(fields)
			require.NoError(t, err)

			rendered := prompt.Text()
			for _, v := range fields {
				assert.Contains(t, rendered, v.(string))
			}
		})
	}
}

func TestRegistry_List_StableOrder(t *testing.T) {
	r := NewRegistry()
	var names []string
	for _, info := range r.List() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"assistant", "summarizer", "translator", "coder", "analyst", "creative"}, names)
}

func TestRegistry_UnknownTask(t *testing.T) {
	r := NewRegistry()
	_, err := r.Template("unknown", Options{})
	var unsupported *core.UnsupportedTaskError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "unknown", unsupported.Task)
	assert.Equal(t, Names(), unsupported.Valid)
}

func TestRegistry_CaseInsensitiveResolution(t *testing.T) {
	r := NewRegistry()
	upper, err := r.Template("ASSISTANT", Options{})
	require.NoError(t, err)
	lower, err := r.Template("assistant", Options{})
	require.NoError(t, err)
	assert.Equal(t, lower.RequiredInputs(), upper.RequiredInputs())
}

func TestRegistry_RequiredInputs_Fallback(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"message"}, r.RequiredInputs("no-such-task"))
	assert.Equal(t, []string{"text", "sourceLanguage", "targetLanguage", "context"}, r.RequiredInputs("translator"))
}

func TestTemplate_MissingRequiredField(t *testing.T) {
	r := NewRegistry()
	tmpl, err := r.Template("summarizer", Options{})
	require.NoError(t, err)

	_, err = tmpl.Render(map[string]any{"text": "some text"}) // length absent
	var missing *core.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "length", missing.Field)
}

func TestTemplate_ExtraFieldsIgnored(t *testing.T) {
	r := NewRegistry()
	tmpl, err := r.Template("assistant", Options{})
	require.NoError(t, err)

	prompt, err := tmpl.Render(map[string]any{
		"language": "English",
		"message":  "Hi",
		"history":  "user: earlier turn", // injected by conversational wrap, unused here
	})
	require.NoError(t, err)
	assert.Contains(t, prompt.Text(), "Hi")
}

func TestRegistry_IncludeExamplesOption(t *testing.T) {
	r := NewRegistry()

	plain, err := r.Template("assistant", Options{})
	require.NoError(t, err)
	withExamples, err := r.Template("assistant", Options{IncludeExamples: true})
	require.NoError(t, err)

	fields := map[string]any{"language": "English", "message": "Hi"}
	p1, err := plain.Render(fields)
	require.NoError(t, err)
	p2, err := withExamples.Render(fields)
	require.NoError(t, err)

	assert.NotContains(t, p1.Text(), "Examples of good responses")
	assert.Contains(t, p2.Text(), "Examples of good responses")

	// The option is meaningless for the summarizer and must be ignored.
	_, err = r.Template("summarizer", Options{IncludeExamples: true})
	assert.NoError(t, err)
}

func TestDynamicTemplate(t *testing.T) {
	tmpl := DynamicTemplate(
		"Classify support tickets by urgency.",
		"Answer with exactly one word.",
		[]Example{{Input: "Server is down!", Output: "high"}, {Input: "Feature idea", Output: "low"}},
	)

	assert.Equal(t, []string{"input"}, tmpl.RequiredInputs())

	prompt, err := tmpl.Render(map[string]any{"input": "Password reset not working"})
	require.NoError(t, err)
	text := prompt.Text()
	assert.Contains(t, text, "Classify support tickets by urgency.")
	assert.Contains(t, text, "Answer with exactly one word.")
	assert.Contains(t, text, "Example 1:\nInput: Server is down!\nOutput: high")
	assert.Contains(t, text, "Example 2:")
	assert.Contains(t, text, "Password reset not working")
}
