package sync

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/remote"
)

const (
	conversationsTable = "chat_conversations"
	messagesTable      = "chat_messages"
)

// fallbackConversations is the demo dataset installed when the
// conversation table is not provisioned.
var fallbackConversations = []model.ChatConversation{
	{ID: "mock-conv-1", Title: "Mock Conversation"},
}

// Chat is the synchronized conversation collection (newest first) plus
// per-conversation message persistence. Messages of a conversation that
// only exists locally never touch the backend.
type Chat struct {
	*Store[model.ChatConversation]

	client remote.Client
	owner  string
	logger *zap.Logger
}

// NewChat creates the chat store for one user.
func NewChat(client remote.Client, logger *zap.Logger, owner string) *Chat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		Store: NewStore(client, logger, Config[model.ChatConversation]{
			Table:      conversationsTable,
			TempPrefix: "conv",
			Owner:      owner,
			ID:         func(c *model.ChatConversation) string { return c.ID },
			SetID:      func(c *model.ChatConversation, id string) { c.ID = id },
			Prepend:    true,
			LoadOrder:  remote.Order{Column: "timestamp", Desc: true},
			Fallback:   fallbackConversations,
		}),
		client: client,
		owner:  owner,
		logger: logger.Named("chat"),
	}
}

// NewConversation opens an untitled conversation at the front of the
// history. The title is derived later from the first user message.
func (c *Chat) NewConversation(ctx context.Context) (*model.ChatConversation, error) {
	return c.Create(ctx, model.ChatConversation{
		Title:     "New Chat",
		Timestamp: time.Now().UTC(),
	})
}

// DeleteConversation removes a conversation and its history.
func (c *Chat) DeleteConversation(ctx context.Context, id string) error {
	return c.Delete(ctx, id)
}

// RetitleFromFirstMessage names a conversation after its first user
// message, truncated to 30 characters.
func (c *Chat) RetitleFromFirstMessage(ctx context.Context, id, firstMessage string) error {
	title := model.DeriveTitle(firstMessage)
	return c.Update(ctx, id,
		func(conv *model.ChatConversation) { conv.Title = title },
		map[string]any{"title": title},
	)
}

// LoadMessages fetches a conversation's messages in chronological order.
// Provisional conversations have no backend history; a missing messages
// table degrades to an empty thread.
func (c *Chat) LoadMessages(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	if model.IsTempID(conversationID) {
		return nil, nil
	}

	rows, err := c.client.Select(ctx, messagesTable,
		remote.Filter{"conversation_id": conversationID, "user_id": c.owner},
		remote.Order{Column: "timestamp"},
	)
	if err != nil {
		if remote.IsNotProvisioned(err) {
			c.logger.Warn("backend messages table missing, thread kept in memory",
				zap.Error(err))
			return nil, nil
		}
		c.logger.Error("loading messages", zap.Error(err))
		return nil, err
	}

	msgs := make([]model.ChatMessage, 0, len(rows))
	for _, row := range rows {
		var msg model.ChatMessage
		if err := json.Unmarshal(row, &msg); err != nil {
			c.logger.Error("decoding message", zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// AppendMessage persists one message of a conversation. Persistence is
// fire-and-forget: the conversation display never blocks on it, and a
// missing table only logs a warning.
func (c *Chat) AppendMessage(ctx context.Context, conversationID string, msg model.ChatMessage) {
	if model.IsTempID(conversationID) {
		return
	}

	row := map[string]any{
		"conversation_id": conversationID,
		"text":            msg.Text,
		"sender":          msg.Sender,
		"timestamp":       msg.Timestamp.UTC().Format(time.RFC3339),
		"user_id":         c.owner,
	}
	if _, err := c.client.Insert(ctx, messagesTable, row); err != nil {
		if remote.IsNotProvisioned(err) {
			c.logger.Warn("backend messages table missing, message not persisted",
				zap.Error(err))
			return
		}
		c.logger.Error("persisting message", zap.Error(err))
	}
}
