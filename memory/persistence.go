package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskpipe/taskpipe/core"
)

// Format selects the on-disk serialization of a saved buffer.
type Format string

const (
	// FormatJSON writes an indented JSON document.
	FormatJSON Format = "json"
	// FormatYAML writes a YAML document.
	FormatYAML Format = "yaml"
)

// snapshot is the durable representation of a ConversationBuffer: every
// conversation with its metadata plus the bounds active at save time.
// Timestamps serialize as RFC 3339 and are reconstructed into time.Time on
// load by both codecs.
type snapshot struct {
	Conversations map[string][]Message        `json:"conversations" yaml:"conversations"`
	Metadata      map[string]snapshotMetadata `json:"metadata" yaml:"metadata"`
	Config        snapshotConfig              `json:"config" yaml:"config"`
}

type snapshotMetadata struct {
	Created      time.Time `json:"created" yaml:"created"`
	Updated      time.Time `json:"updated" yaml:"updated"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
}

type snapshotConfig struct {
	MaxConversations           int `json:"max_conversations" yaml:"max_conversations"`
	MaxMessagesPerConversation int `json:"max_messages_per_conversation" yaml:"max_messages_per_conversation"`
}

// SaveFile serializes the full buffer state to path. Parent directories are
// created as needed. Failures surface as core.PersistenceError.
func (b *ConversationBuffer) SaveFile(path string, format Format) error {
	b.mu.Lock()
	snap := snapshot{
		Conversations: make(map[string][]Message),
		Metadata:      make(map[string]snapshotMetadata),
		Config: snapshotConfig{
			MaxConversations:           b.maxConversations,
			MaxMessagesPerConversation: b.maxMessages,
		},
	}
	for _, id := range b.cache.Keys() {
		conv, ok := b.cache.Peek(id)
		if !ok {
			continue
		}
		messages := make([]Message, len(conv.Messages))
		copy(messages, conv.Messages)
		snap.Conversations[id] = messages
		snap.Metadata[id] = snapshotMetadata{
			Created:      conv.Created,
			Updated:      conv.Updated,
			MessageCount: conv.MessageCount,
		}
	}
	b.mu.Unlock()

	raw, err := marshalSnapshot(&snap, format)
	if err != nil {
		return &core.PersistenceError{Path: path, Cause: err}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &core.PersistenceError{Path: path, Cause: err}
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return &core.PersistenceError{Path: path, Cause: err}
	}
	return nil
}

// LoadFile restores the buffer verbatim from a file written by SaveFile,
// replacing current contents and bounds. A missing or malformed file fails
// with core.PersistenceError; the buffer is left unchanged on failure.
func (b *ConversationBuffer) LoadFile(path string, format Format) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &core.PersistenceError{Path: path, Cause: err}
	}

	var snap snapshot
	if err := unmarshalSnapshot(raw, format, &snap); err != nil {
		return &core.PersistenceError{Path: path, Cause: err}
	}
	if snap.Config.MaxConversations < 1 {
		snap.Config.MaxConversations = DefaultMaxConversations
	}
	if snap.Config.MaxMessagesPerConversation < 1 {
		snap.Config.MaxMessagesPerConversation = DefaultMaxMessagesPerConversation
	}

	// Rebuild oldest-updated first so the cache recency order matches the
	// saved update order.
	ids := make([]string, 0, len(snap.Conversations))
	for id := range snap.Conversations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		mi, mj := snap.Metadata[ids[i]], snap.Metadata[ids[j]]
		if mi.Updated.Equal(mj.Updated) {
			return ids[i] < ids[j]
		}
		return mi.Updated.Before(mj.Updated)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxConversations = snap.Config.MaxConversations
	b.maxMessages = snap.Config.MaxMessagesPerConversation
	b.cache = newConversationCache(b.maxConversations, b.logger)
	for _, id := range ids {
		meta := snap.Metadata[id]
		b.cache.Add(id, &Conversation{
			ID:           id,
			Messages:     snap.Conversations[id],
			Created:      meta.Created,
			Updated:      meta.Updated,
			MessageCount: meta.MessageCount,
		})
	}
	return nil
}

func marshalSnapshot(snap *snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return json.MarshalIndent(snap, "", "  ")
	case FormatYAML:
		return yaml.Marshal(snap)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func unmarshalSnapshot(raw []byte, format Format, snap *snapshot) error {
	switch format {
	case FormatJSON, "":
		return json.Unmarshal(raw, snap)
	case FormatYAML:
		return yaml.Unmarshal(raw, snap)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
