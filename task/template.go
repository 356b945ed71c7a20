package task

import (
	"fmt"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/internal/util"
)

// Template is a reusable prompt factory: role-tagged segments with
// {{.field}} placeholders plus the ordered list of required input fields.
// Templates are immutable after construction and safe for concurrent use.
type Template struct {
	task     string
	required []string
	segments []core.Segment
}

// NewTemplate builds a template from raw segments. Exposed for callers that
// need fully custom prompt shapes; the built-in tasks go through Registry.
func NewTemplate(task string, required []string, segments ...core.Segment) *Template {
	req := make([]string, len(required))
	copy(req, required)
	segs := make([]core.Segment, len(segments))
	copy(segs, segments)
	return &Template{task: task, required: req, segments: segs}
}

// Task returns the task name the template was built for.
func (t *Template) Task() string { return t.task }

// RequiredInputs returns the ordered required input field names.
func (t *Template) RequiredInputs() []string {
	out := make([]string, len(t.required))
	copy(out, t.required)
	return out
}

// Render produces a prompt from the fields map. Every required field must be
// present or rendering fails with core.MissingFieldError; fields beyond the
// required set are passed through to the template and ignored when unused.
func (t *Template) Render(fields map[string]any) (core.Prompt, error) {
	for _, name := range t.required {
		if _, ok := fields[name]; !ok {
			return nil, &core.MissingFieldError{Task: t.task, Field: name}
		}
	}

	prompt := make(core.Prompt, 0, len(t.segments))
	for _, seg := range t.segments {
		text, err := util.RenderTemplate(seg.Text, fields)
		if err != nil {
			return nil, fmt.Errorf("render %s segment for task %q: %w", seg.Role, t.task, err)
		}
		prompt = append(prompt, core.Segment{Role: seg.Role, Text: text})
	}
	return prompt, nil
}
