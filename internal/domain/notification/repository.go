package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,SSEHub,Transport,ChatTransport

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for in-app notification persistence
type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	GetByID(ctx context.Context, notificationID uuid.UUID) (*Notification, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Notification, error)
	Update(ctx context.Context, notification *Notification) error
}

// SSEHub defines the interface for managing SSE connections
type SSEHub interface {
	Register(client *SSEClient)
	Unregister(clientID string)
	GetClientCount() int
	BroadcastToUser(userID string, message *SSEMessage) int
}

// Transport delivers a notification to the recipient's devices.
type Transport interface {
	Send(ctx context.Context, n *Notification) error
}

// ChatTransport posts a structured message into a conversation.
type ChatTransport interface {
	PostMessage(ctx context.Context, msg *ChatMessage) error
}
