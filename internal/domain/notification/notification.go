package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery status of a notification
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Type identifies the booking event a notification reports.
type Type string

const (
	TypeVisitRequest      Type = "visit_request"
	TypeVisitConfirmed    Type = "visit_confirmed"
	TypeVisitRejected     Type = "visit_rejected"
	TypeVisitCompleted    Type = "visit_completed"
	TypeVisitCancelled    Type = "visit_cancelled"
	TypeBookingRequest    Type = "booking_request"
	TypeBookingAccepted   Type = "booking_accepted"
	TypeBookingRefused    Type = "booking_refused"
	TypePaymentPending    Type = "payment_pending"
	TypePaymentReceived   Type = "payment_received"
	TypeContractGenerated Type = "contract_generated"
	TypeContractSigned    Type = "contract_signed"
)

// Effect names the state-machine operation an inline action resolves to.
type Effect string

const (
	EffectVisitRespond       Effect = "visit.respond"
	EffectReservationRespond Effect = "reservation.respond"
)

// Channel names a delivery path, used in DeliveryError.
type Channel string

const (
	ChannelInApp Channel = "IN_APP"
	ChannelSSE   Channel = "SSE"
	ChannelPush  Channel = "PUSH"
	ChannelChat  Channel = "CHAT"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrActionNotFound    = errors.New("notification action not found")
	ErrNotRecipient      = errors.New("actor is not the notification recipient")
	ErrAlreadyActed      = errors.New("notification action already taken")
	ErrNoHandler         = errors.New("no handler for action effect")
	ErrClientNotFound    = errors.New("SSE client not found")
	ErrChannelFull       = errors.New("SSE message channel full")
)

// DeliveryError reports a transport failure. Delivery is best-effort and never
// retried.
type DeliveryError struct {
	Channel Channel
	Target  string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s to %s failed: %v", e.Channel, e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Action is an inline action descriptor; the recipient's client resolves Effect.
type Action struct {
	ID     string            `json:"id"`
	Label  string            `json:"label"`
	Effect Effect            `json:"effect"`
	Params map[string]string `json:"params,omitempty"`
}

// Notification represents a notification to be sent to users
type Notification struct {
	ID             int64           `json:"id"`
	NotificationID uuid.UUID       `json:"notificationId"`
	Type           Type            `json:"type"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	TargetUserID   string          `json:"targetUserId"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Actions        []Action        `json:"actions,omitempty"`
	Status         Status          `json:"status"`
	LastError      *string         `json:"lastError,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	SentAt         *time.Time      `json:"sentAt,omitempty"`
	FailedAt       *time.Time      `json:"failedAt,omitempty"`
	ReadAt         *time.Time      `json:"readAt,omitempty"`
	ActedAt        *time.Time      `json:"actedAt,omitempty"`
}

// NewNotification creates a new notification
func NewNotification(typ Type, targetUserID, title, message string, payload json.RawMessage, actions ...Action) *Notification {
	return &Notification{
		NotificationID: uuid.New(),
		Type:           typ,
		Title:          title,
		Message:        message,
		TargetUserID:   targetUserID,
		Payload:        payload,
		Actions:        actions,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}

// CanTransitionTo checks if a transition to the target status is valid
func (n *Notification) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {StatusSent, StatusFailed},
		StatusSent:    {},
		StatusFailed:  {},
	}
	for _, s := range transitions[n.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// MarkSent marks the notification as sent
func (n *Notification) MarkSent() error {
	if !n.CanTransitionTo(StatusSent) {
		return ErrInvalidTransition
	}
	n.Status = StatusSent
	now := time.Now().UTC()
	n.SentAt = &now
	return nil
}

// MarkFailed marks the notification as failed; failed notifications are not retried.
func (n *Notification) MarkFailed(errMsg string) error {
	if !n.CanTransitionTo(StatusFailed) {
		return ErrInvalidTransition
	}
	n.Status = StatusFailed
	now := time.Now().UTC()
	n.FailedAt = &now
	n.LastError = &errMsg
	return nil
}

// MarkRead records that the recipient opened the notification.
func (n *Notification) MarkRead() {
	if n.ReadAt != nil {
		return
	}
	now := time.Now().UTC()
	n.ReadAt = &now
}

// FindAction returns the action with the given id.
func (n *Notification) FindAction(actionID string) (Action, error) {
	for _, a := range n.Actions {
		if a.ID == actionID {
			return a, nil
		}
	}
	return Action{}, ErrActionNotFound
}

// MarkActed records that one of the inline actions was taken.
func (n *Notification) MarkActed() error {
	if n.ActedAt != nil {
		return ErrAlreadyActed
	}
	now := time.Now().UTC()
	n.ActedAt = &now
	n.MarkRead()
	return nil
}

// ChatMessage is a structured message injected into a booking conversation.
type ChatMessage struct {
	MessageID      uuid.UUID       `json:"messageId"`
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	RecipientID    string          `json:"recipientId"`
	Kind           Type            `json:"kind"`
	Body           string          `json:"body"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// NewChatMessage creates a message in the tenant/owner conversation of a property.
// The recipient is whichever party is not the sender.
func NewChatMessage(propertyID uuid.UUID, tenantID, ownerID, senderID string, kind Type, body string, payload json.RawMessage) *ChatMessage {
	recipient := ownerID
	if senderID == ownerID {
		recipient = tenantID
	}
	return &ChatMessage{
		MessageID:      uuid.New(),
		ConversationID: ConversationID(propertyID, tenantID, ownerID),
		SenderID:       senderID,
		RecipientID:    recipient,
		Kind:           kind,
		Body:           body,
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	}
}

// ConversationID is deterministic for a (property, tenant, owner) triple.
func ConversationID(propertyID uuid.UUID, tenantID, ownerID string) string {
	return "property:" + propertyID.String() + ":" + tenantID + ":" + ownerID
}

// SSEClient represents an active SSE connection
type SSEClient struct {
	ClientID    string
	UserID      string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client
func NewSSEClient(clientID string, userID string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage represents a message to be sent via SSE
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates a new SSE message
func NewSSEMessage(event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Filter represents filters for querying notifications
type Filter struct {
	TargetUserID *string
	Type         *Type
	Status       *Status
	Unread       bool
}
