package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/taskpipe/taskpipe/core"
	"github.com/taskpipe/taskpipe/model"
)

// Summarizer compacts a batch of messages into one summary string.
type Summarizer func(ctx context.Context, messages []Message) (string, error)

// DigestSummarizer is the deterministic fallback: a fixed-shape digest built
// from the first 50 characters of each message. It never fails.
func DigestSummarizer(_ context.Context, messages []Message) (string, error) {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		content := msg.Content
		if len(content) > 50 {
			content = content[:50]
		}
		parts = append(parts, content)
	}
	return fmt.Sprintf("Summary of %d messages: %s", len(messages), strings.Join(parts, " ")), nil
}

// InvokerSummarizer delegates compaction to a model invoker.
func InvokerSummarizer(inv model.Invoker) Summarizer {
	return func(ctx context.Context, messages []Message) (string, error) {
		lines := make([]string, 0, len(messages))
		for _, msg := range messages {
			lines = append(lines, msg.Role+": "+msg.Content)
		}
		resp, err := inv.Invoke(ctx, core.Prompt{
			{Role: core.RoleSystem, Text: "Summarize the following conversation excerpt in a few sentences. Preserve names, decisions and open questions."},
			{Role: core.RoleUser, Text: strings.Join(lines, "\n")},
		})
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	}
}

// SummaryMemory stores compacted conversation history: whenever a
// conversation accumulates summaryInterval un-compacted messages they are
// folded into one summary string and the accumulation buffer is cleared.
// Useful for long conversations where full history is too large.
type SummaryMemory struct {
	mu        sync.Mutex
	interval  int
	summarize Summarizer
	summaries map[string][]string
	pending   map[string][]Message
}

// SummaryOption customizes a SummaryMemory.
type SummaryOption func(*SummaryMemory)

// WithSummarizer replaces the default digest summarizer.
func WithSummarizer(s Summarizer) SummaryOption {
	return func(m *SummaryMemory) { m.summarize = s }
}

// NewSummaryMemory creates a SummaryMemory compacting every interval
// messages (minimum 1; default 10 when interval is not positive).
func NewSummaryMemory(interval int, opts ...SummaryOption) *SummaryMemory {
	if interval < 1 {
		interval = 10
	}
	m := &SummaryMemory{
		interval:  interval,
		summarize: DigestSummarizer,
		summaries: make(map[string][]string),
		pending:   make(map[string][]Message),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddMessage appends to the conversation's accumulation buffer and compacts
// it when the interval is reached. A failing summarizer leaves the pending
// messages in place so no history is lost.
func (m *SummaryMemory) AddMessage(ctx context.Context, conversationID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending[conversationID] = append(m.pending[conversationID], msg)
	if len(m.pending[conversationID]) < m.interval {
		return nil
	}

	summary, err := m.summarize(ctx, m.pending[conversationID])
	if err != nil {
		return fmt.Errorf("compact conversation %q: %w", conversationID, err)
	}
	m.summaries[conversationID] = append(m.summaries[conversationID], summary)
	delete(m.pending, conversationID)
	return nil
}

// Context returns the conversation context: numbered summaries followed by
// the not-yet-compacted messages, each on its own line.
func (m *SummaryMemory) Context(conversationID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var parts []string
	for i, summary := range m.summaries[conversationID] {
		parts = append(parts, fmt.Sprintf("Summary %d: %s", i+1, summary))
	}
	for _, msg := range m.pending[conversationID] {
		role := msg.Role
		if role == "" {
			role = "unknown"
		}
		parts = append(parts, role+": "+msg.Content)
	}
	return strings.Join(parts, "\n")
}

// SummaryCount reports how many compaction cycles a conversation has gone
// through.
func (m *SummaryMemory) SummaryCount(conversationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.summaries[conversationID])
}

// PendingCount reports the current size of the accumulation buffer.
func (m *SummaryMemory) PendingCount(conversationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending[conversationID])
}
