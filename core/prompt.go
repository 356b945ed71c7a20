package core

import "strings"

// Conversation roles used throughout the module. Roles are free-form strings
// on the wire; these constants cover the ones taskpipe itself produces.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Segment is a single role-tagged block of prompt text.
type Segment struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Prompt is an ordered sequence of role-tagged segments ready for a model
// invoker. Order is meaningful: system instructions precede user content.
type Prompt []Segment

// System returns the concatenated text of all system segments.
func (p Prompt) System() string {
	var b strings.Builder
	for _, s := range p {
		if s.Role == RoleSystem {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Messages returns the non-system segments in order.
func (p Prompt) Messages() []Segment {
	out := make([]Segment, 0, len(p))
	for _, s := range p {
		if s.Role != RoleSystem {
			out = append(out, s)
		}
	}
	return out
}

// Text flattens the whole prompt into a single string, one segment per line,
// prefixed with its role. Useful for logging and deterministic mocks.
func (p Prompt) Text() string {
	parts := make([]string, 0, len(p))
	for _, s := range p {
		parts = append(parts, s.Role+": "+s.Text)
	}
	return strings.Join(parts, "\n")
}
