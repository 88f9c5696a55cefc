package boltstore

import (
	"context"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/rental-hub/rental-hub/internal/domain/notification"
)

// ChatLog stores booking conversation messages. It implements notification.ChatTransport.
type ChatLog struct {
	db *bolt.DB
}

func NewChatLog(db *bolt.DB) *ChatLog {
	return &ChatLog{db: db}
}

// PostMessage appends msg to its conversation.
func (c *ChatLog) PostMessage(ctx context.Context, msg *notification.ChatMessage) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return putDoc(tx.Bucket(bucketChatMessages), msg.MessageID[:], msg)
	})
}

// ListConversation returns the messages of a conversation, oldest first.
func (c *ChatLog) ListConversation(ctx context.Context, conversationID string, limit, offset int) ([]*notification.ChatMessage, error) {
	var out []*notification.ChatMessage
	err := c.db.View(func(tx *bolt.Tx) error {
		items, err := scan(tx.Bucket(bucketChatMessages), func(m *notification.ChatMessage) bool {
			return m.ConversationID == conversationID
		})
		if err != nil {
			return err
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
		if offset >= len(items) {
			out = []*notification.ChatMessage{}
			return nil
		}
		items = items[offset:]
		if limit > 0 && limit < len(items) {
			items = items[:limit]
		}
		out = items
		return nil
	})
	return out, err
}
