package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rental-hub/rental-hub/internal/domain/notification"
)

// ChatLog stores booking conversation messages. It implements notification.ChatTransport.
type ChatLog struct {
	pool *pgxpool.Pool
}

func NewChatLog(pool *pgxpool.Pool) *ChatLog {
	return &ChatLog{pool: pool}
}

func (c *ChatLog) PostMessage(ctx context.Context, msg *notification.ChatMessage) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO chat_messages
		(message_id, conversation_id, sender_id, recipient_id, kind, body, payload, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, msg.MessageID, msg.ConversationID, msg.SenderID, msg.RecipientID, msg.Kind, msg.Body, msg.Payload, msg.CreatedAt)
	return err
}

// ListConversation returns the messages of a conversation, oldest first.
func (c *ChatLog) ListConversation(ctx context.Context, conversationID string, limit, offset int) ([]*notification.ChatMessage, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT message_id, conversation_id, sender_id, recipient_id, kind, body, payload, created_at
		FROM chat_messages WHERE conversation_id=$1
		ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*notification.ChatMessage{}
	for rows.Next() {
		var m notification.ChatMessage
		if err := rows.Scan(&m.MessageID, &m.ConversationID, &m.SenderID, &m.RecipientID, &m.Kind, &m.Body, &m.Payload, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
