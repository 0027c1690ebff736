package types

// Sender identifies the author of a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one entry in an analysis conversation.
//
// Text is mutable only while the message is the unique active AI message
// (Loading == true). OriginalQuery is set only on the first user message of a
// session and is what Restart replays.
type ChatMessage struct {
	ID            string         `json:"id"`
	Sender        Sender         `json:"sender"`
	Text          string         `json:"text"`
	Timestamp     int64          `json:"timestamp"`
	Loading       bool           `json:"loading,omitempty"`
	IsError       bool           `json:"isError,omitempty"`
	OriginalQuery *AnalysisQuery `json:"originalQuery,omitempty"`
	ModelID       string         `json:"modelID,omitempty"`
}

// HistoryEntry is one role/content pair of prior conversation sent with a
// follow-up chat request.
type HistoryEntry struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// HistoryRole maps a message sender to its wire role.
func HistoryRole(s Sender) string {
	if s == SenderUser {
		return "user"
	}
	return "assistant"
}
