// Package memory provides bounded conversational memory. ConversationBuffer
// keeps ordered per-conversation message lists with two eviction policies:
// the least-recently-updated conversation is dropped when the conversation
// bound is exceeded, and the oldest message is dropped when a conversation's
// message bound is exceeded. SummaryMemory is the compacting variant for
// long conversations. Buffers can be saved to and restored from disk.
package memory
