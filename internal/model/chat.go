package model

import "time"

// Chat message senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// maxTitleRunes is the length a conversation title is truncated to when
// derived from the first user message.
const maxTitleRunes = 30

// ChatMessage is a single message within a conversation. Error marks
// messages that report an assistant failure rather than model output.
type ChatMessage struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id,omitempty" db:"conversation_id"`
	Text           string    `json:"text" db:"text"`
	Sender         string    `json:"sender" db:"sender"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	Error          bool      `json:"error,omitempty" db:"error"`
}

// ChatConversation is an ordered message thread. The title is derived from
// the first user message once one arrives.
type ChatConversation struct {
	ID        string        `json:"id" db:"id"`
	Title     string        `json:"title" db:"title"`
	Timestamp time.Time     `json:"timestamp" db:"timestamp"`
	Messages  []ChatMessage `json:"messages,omitempty" db:"-"`
}

// DeriveTitle builds a conversation title from the first user message,
// truncated to 30 characters with an ellipsis.
func DeriveTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) <= maxTitleRunes {
		return firstMessage
	}
	return string(runes[:maxTitleRunes]) + "..."
}
