// Package client implements the conversation side of an analysis session:
// the message store, the stream consumer, and the session controller.
package client

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/logging"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// MessageStore is an ordered, append-mostly sequence of conversation
// messages.
//
// Invariant: at most one message has Loading == true, and it is always the
// most recently appended AI message. The store tracks it by id in activeID;
// mutations address it by identity, never by scanning.
type MessageStore struct {
	mu       sync.Mutex
	messages []types.ChatMessage
	activeID string
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Messages returns a copy of the conversation.
func (s *MessageStore) Messages() []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// AppendUser appends a user message. snapshot, when non-nil, records the
// original query for restart; it belongs only on a session's first user
// message.
func (s *MessageStore) AppendUser(text string, snapshot *types.AnalysisQuery) types.ChatMessage {
	msg := types.ChatMessage{
		ID:            ulid.Make().String(),
		Sender:        types.SenderUser,
		Text:          text,
		Timestamp:     time.Now().UnixMilli(),
		OriginalQuery: snapshot,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return msg
}

// AppendLoadingAI appends a loading AI placeholder and makes it the active
// message. If a previous active message was somehow left loading it is
// finalized first, keeping the invariant unconditional.
func (s *MessageStore) AppendLoadingAI(modelID string) types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != "" {
		logging.Warn().Str("messageID", s.activeID).Msg("orphaned loading message finalized")
		s.resolveLocked(func(m *types.ChatMessage) { m.Loading = false })
	}

	msg := types.ChatMessage{
		ID:        ulid.Make().String(),
		Sender:    types.SenderAI,
		Timestamp: time.Now().UnixMilli(),
		Loading:   true,
		ModelID:   modelID,
	}
	s.messages = append(s.messages, msg)
	s.activeID = msg.ID
	return msg
}

// Active returns the current loading AI message, if any.
func (s *MessageStore) Active() (types.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return types.ChatMessage{}, false
	}
	for _, m := range s.messages {
		if m.ID == s.activeID {
			return m, true
		}
	}
	return types.ChatMessage{}, false
}

// MutateActive applies fn to the active message. Returns false when no
// message is loading.
func (s *MessageStore) MutateActive(fn func(*types.ChatMessage)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(fn)
}

// ResolveActive applies fn to the active message and clears the active
// reference. The message is terminal afterwards: later resolutions find no
// active message and report false, which gives terminal-once semantics.
func (s *MessageStore) ResolveActive(fn func(*types.ChatMessage)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(fn)
}

func (s *MessageStore) mutateLocked(fn func(*types.ChatMessage)) bool {
	if s.activeID == "" {
		return false
	}
	for i := range s.messages {
		if s.messages[i].ID == s.activeID {
			fn(&s.messages[i])
			return true
		}
	}
	return false
}

func (s *MessageStore) resolveLocked(fn func(*types.ChatMessage)) bool {
	if !s.mutateLocked(fn) {
		return false
	}
	s.activeID = ""
	return true
}

// StopAll finalizes every loading message: Loading off, marker appended to
// the text, error flag untouched. Safe when nothing is loading.
func (s *MessageStore) StopAll(marker string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].Loading {
			s.messages[i].Loading = false
			s.messages[i].Text += marker
		}
	}
	s.activeID = ""
}

// Snapshot returns the stored original-query snapshot, if any.
func (s *MessageStore) Snapshot() (*types.AnalysisQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.Sender == types.SenderUser && m.OriginalQuery != nil {
			return m.OriginalQuery, true
		}
	}
	return nil, false
}

// TruncateToSnapshot discards every message after the first user message
// bearing an original-query snapshot, including partial AI content, and
// returns the snapshot. Returns false, leaving the store untouched, when no
// snapshot is stored.
func (s *MessageStore) TruncateToSnapshot() (*types.AnalysisQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.messages {
		if m.Sender == types.SenderUser && m.OriginalQuery != nil {
			s.messages = s.messages[:i+1]
			s.activeID = ""
			return m.OriginalQuery, true
		}
	}
	return nil, false
}

// History returns the finalized conversation as role/content pairs, for a
// follow-up request. Loading placeholders and error messages are excluded.
func (s *MessageStore) History() []types.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []types.HistoryEntry
	for _, m := range s.messages {
		if m.Loading || m.IsError {
			continue
		}
		history = append(history, types.HistoryEntry{
			Role:    types.HistoryRole(m.Sender),
			Content: m.Text,
		})
	}
	return history
}

// Clear empties the store.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.activeID = ""
}
