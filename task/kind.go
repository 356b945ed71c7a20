package task

import (
	"strings"

	"github.com/taskpipe/taskpipe/core"
)

// Kind enumerates the closed set of supported tasks. Unknown names never map
// to a Kind; ParseKind fails with core.UnsupportedTaskError instead.
type Kind int

const (
	// KindAssistant is the multilingual general assistant task.
	KindAssistant Kind = iota
	// KindSummarizer is the text summarization task.
	KindSummarizer
	// KindTranslator is the text translation task.
	KindTranslator
	// KindCoder is the code generation and explanation task.
	KindCoder
	// KindAnalyst is the data analysis and insights task.
	KindAnalyst
	// KindCreative is the creative writing task. It reuses the assistant
	// template with a distinct catalogue entry.
	KindCreative
)

// kindOrder fixes the stable listing order of the catalogue.
var kindOrder = []Kind{KindAssistant, KindSummarizer, KindTranslator, KindCoder, KindAnalyst, KindCreative}

var kindNames = map[Kind]string{
	KindAssistant:  "assistant",
	KindSummarizer: "summarizer",
	KindTranslator: "translator",
	KindCoder:      "coder",
	KindAnalyst:    "analyst",
	KindCreative:   "creative",
}

var kindDescriptions = map[Kind]string{
	KindAssistant:  "Multilingual general assistant",
	KindSummarizer: "Text summarization",
	KindTranslator: "Text translation",
	KindCoder:      "Code generation and explanation",
	KindAnalyst:    "Data analysis and insights",
	KindCreative:   "Creative writing and brainstorming",
}

var kindInputs = map[Kind][]string{
	KindAssistant:  {"language", "message"},
	KindSummarizer: {"text", "length"},
	KindTranslator: {"text", "sourceLanguage", "targetLanguage", "context"},
	KindCoder:      {"language", "taskType", "requirements", "message"},
	KindAnalyst:    {"data", "focus", "audience", "question"},
	KindCreative:   {"language", "message"},
}

// String returns the canonical lower-case task name.
func (k Kind) String() string { return kindNames[k] }

// Description returns the human-readable catalogue description.
func (k Kind) Description() string { return kindDescriptions[k] }

// RequiredInputs returns the ordered required input field names for the kind.
func (k Kind) RequiredInputs() []string {
	inputs := kindInputs[k]
	out := make([]string, len(inputs))
	copy(out, inputs)
	return out
}

// Names returns all task names in stable catalogue order.
func Names() []string {
	names := make([]string, 0, len(kindOrder))
	for _, k := range kindOrder {
		names = append(names, kindNames[k])
	}
	return names
}

// ParseKind resolves a task name case-insensitively. Unknown names fail with
// core.UnsupportedTaskError carrying the valid task list.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, k := range kindOrder {
		if kindNames[k] == normalized {
			return k, nil
		}
	}
	return 0, &core.UnsupportedTaskError{Task: name, Valid: Names()}
}
