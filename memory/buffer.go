package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/taskpipe/taskpipe/logging"
)

// Message is one role-tagged entry in a conversation.
type Message struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// MessageFromValue builds a Message from loosely-typed input: an existing
// Message passes through, a map contributes role/content, and anything else
// is stringified into the content.
func MessageFromValue(v any) Message {
	switch m := v.(type) {
	case Message:
		return m
	case map[string]any:
		msg := Message{}
		if role, ok := m["role"].(string); ok {
			msg.Role = role
		}
		if content, ok := m["content"].(string); ok {
			msg.Content = content
		} else {
			msg.Content = fmt.Sprintf("%v", v)
		}
		if ts, ok := m["timestamp"].(time.Time); ok {
			msg.Timestamp = ts
		}
		return msg
	default:
		return Message{Content: fmt.Sprintf("%v", v)}
	}
}

// Conversation is the per-id state owned by a ConversationBuffer. Messages
// are ordered oldest first. MessageCount is cumulative and keeps growing
// after old messages are trimmed.
type Conversation struct {
	ID           string    `json:"id" yaml:"id"`
	Messages     []Message `json:"messages" yaml:"messages"`
	Created      time.Time `json:"created" yaml:"created"`
	Updated      time.Time `json:"updated" yaml:"updated"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
}

const (
	// DefaultMaxConversations bounds distinct active conversations.
	DefaultMaxConversations = 100
	// DefaultMaxMessagesPerConversation bounds each conversation's list.
	DefaultMaxMessagesPerConversation = 100
)

// ConversationBuffer is a bounded, keyed store of ordered message lists.
// Recency for conversation eviction is bumped only by AddMessage, so the LRU
// order of the backing cache equals least-recently-updated order. All reads
// and writes are serialized by one mutex: check, evict, append and trim
// happen as a single atomic unit.
type ConversationBuffer struct {
	mu               sync.Mutex
	maxConversations int
	maxMessages      int
	cache            *lru.Cache[string, *Conversation]
	logger           logging.Logger
}

// BufferOption customizes a ConversationBuffer.
type BufferOption func(*bufferSettings)

type bufferSettings struct {
	maxConversations int
	maxMessages      int
	logger           logging.Logger
}

// WithMaxConversations bounds the number of distinct active conversations.
func WithMaxConversations(n int) BufferOption {
	return func(s *bufferSettings) { s.maxConversations = n }
}

// WithMaxMessagesPerConversation bounds each conversation's message list.
func WithMaxMessagesPerConversation(n int) BufferOption {
	return func(s *bufferSettings) { s.maxMessages = n }
}

// WithBufferLogger sets the buffer logger.
func WithBufferLogger(l logging.Logger) BufferOption {
	return func(s *bufferSettings) { s.logger = logging.OrNoOp(l) }
}

// NewConversationBuffer creates an empty buffer with the given bounds.
func NewConversationBuffer(opts ...BufferOption) *ConversationBuffer {
	settings := bufferSettings{
		maxConversations: DefaultMaxConversations,
		maxMessages:      DefaultMaxMessagesPerConversation,
		logger:           logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.maxConversations < 1 {
		settings.maxConversations = 1
	}
	if settings.maxMessages < 1 {
		settings.maxMessages = 1
	}

	b := &ConversationBuffer{
		maxConversations: settings.maxConversations,
		maxMessages:      settings.maxMessages,
		logger:           settings.logger,
	}
	b.cache = newConversationCache(settings.maxConversations, settings.logger)
	return b
}

func newConversationCache(capacity int, logger logging.Logger) *lru.Cache[string, *Conversation] {
	cache, err := lru.NewWithEvict(capacity, func(id string, conv *Conversation) {
		logger.Info("memory.conversation.evicted", "conversation_id", id, "messages", len(conv.Messages))
	})
	if err != nil {
		// Only reachable with capacity < 1, which construction prevents.
		panic(err)
	}
	return cache
}

// AddMessage normalizes msg and appends it to the conversation, creating the
// conversation on first use. When the conversation bound is reached and the
// id is new, the least-recently-updated conversation is evicted first. When
// the message list exceeds the per-conversation bound the single oldest
// message is dropped.
func (b *ConversationBuffer) AddMessage(conversationID string, msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if msg.Role == "" {
		msg.Role = "user"
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}

	conv, ok := b.cache.Peek(conversationID)
	if !ok {
		conv = &Conversation{ID: conversationID, Created: now}
	}

	conv.Messages = append(conv.Messages, msg)
	if len(conv.Messages) > b.maxMessages {
		conv.Messages = conv.Messages[1:]
	}
	conv.Updated = now
	conv.MessageCount++

	// Add bumps recency and evicts the LRU entry if the bound is exceeded.
	b.cache.Add(conversationID, conv)
}

// History returns up to maxMessages messages for the conversation, oldest
// first unless recentFirst is set, in which case the order is reversed
// before truncation. Unknown ids yield an empty slice, never an error.
func (b *ConversationBuffer) History(conversationID string, maxMessages int, recentFirst bool) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	conv, ok := b.cache.Peek(conversationID)
	if !ok {
		return []Message{}
	}

	messages := make([]Message, len(conv.Messages))
	copy(messages, conv.Messages)
	if recentFirst {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}
	if maxMessages > 0 && len(messages) > maxMessages {
		messages = messages[:maxMessages]
	}
	return messages
}

// DefaultHistoryFormat is the per-message template used by FormattedHistory
// when none is given.
const DefaultHistoryFormat = "{role}: {content}"

// FormattedHistory renders the history one message per line using format,
// which may reference {role}, {content} and {timestamp}.
func (b *ConversationBuffer) FormattedHistory(conversationID string, maxMessages int, format string) string {
	if format == "" {
		format = DefaultHistoryFormat
	}
	history := b.History(conversationID, maxMessages, false)
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		line := strings.ReplaceAll(format, "{role}", msg.Role)
		line = strings.ReplaceAll(line, "{content}", msg.Content)
		line = strings.ReplaceAll(line, "{timestamp}", msg.Timestamp.Format(time.RFC3339))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Metadata returns a copy of the conversation's bookkeeping fields.
func (b *ConversationBuffer) Metadata(conversationID string) (created, updated time.Time, messageCount int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	conv, found := b.cache.Peek(conversationID)
	if !found {
		return time.Time{}, time.Time{}, 0, false
	}
	return conv.Created, conv.Updated, conv.MessageCount, true
}

// ClearConversation removes a conversation and its metadata.
func (b *ConversationBuffer) ClearConversation(conversationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Remove(conversationID)
}

// ClearAll removes every conversation.
func (b *ConversationBuffer) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Purge()
}

// ConversationCount returns the number of active conversations.
func (b *ConversationBuffer) ConversationCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Len()
}

// TotalMessageCount sums the current list lengths across all conversations;
// trimmed messages are not counted (unlike the cumulative per-conversation
// MessageCount).
func (b *ConversationBuffer) TotalMessageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, id := range b.cache.Keys() {
		if conv, ok := b.cache.Peek(id); ok {
			total += len(conv.Messages)
		}
	}
	return total
}
