package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
)

// SSE event names.
const (
	EventNotification = "notification"
	EventChatMessage  = "chat_message"
)

// ActionHandler executes the state-machine operation behind an inline action.
type ActionHandler interface {
	HandleAction(ctx context.Context, actor booking.Actor, action notification.Action) error
}

// Dispatcher delivers notifications in-app, over SSE and to the push transport,
// and routes inline actions back to their handlers.
type Dispatcher struct {
	repo   notification.Repository
	hub    notification.SSEHub
	push   notification.Transport
	chat   notification.ChatTransport
	logger zerolog.Logger
	tracer trace.Tracer

	mu       sync.RWMutex
	handlers map[notification.Effect]ActionHandler
}

// NewDispatcher creates a dispatcher. hub, push and chat may be nil.
func NewDispatcher(
	repo notification.Repository,
	hub notification.SSEHub,
	push notification.Transport,
	chat notification.ChatTransport,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		hub:      hub,
		push:     push,
		chat:     chat,
		logger:   logger.With().Str("service", "notification").Logger(),
		tracer:   otel.Tracer("rental-hub/notification"),
		handlers: make(map[notification.Effect]ActionHandler),
	}
}

// RegisterHandler binds an action effect to its handler.
func (d *Dispatcher) RegisterHandler(effect notification.Effect, h ActionHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[effect] = h
}

// Dispatch persists n for the recipient's inbox and fans it out to live clients and
// the push transport. A transport failure marks n FAILED and is returned as a
// *notification.DeliveryError; it is never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, n *notification.Notification) error {
	ctx, span := d.tracer.Start(ctx, "notification.dispatch",
		trace.WithAttributes(
			attribute.String("notification.id", n.NotificationID.String()),
			attribute.String("notification.type", string(n.Type)),
		),
	)
	defer span.End()

	if err := d.repo.Create(ctx, n); err != nil {
		d.logger.Error().Err(err).
			Str("notification_id", n.NotificationID.String()).
			Str("target", n.TargetUserID).
			Msg("failed to store notification")
		return &notification.DeliveryError{Channel: notification.ChannelInApp, Target: n.TargetUserID, Err: err}
	}

	d.broadcast(n.TargetUserID, EventNotification, n)

	if d.push != nil {
		if err := d.push.Send(ctx, n); err != nil {
			span.SetAttributes(attribute.Bool("delivery.failed", true))
			d.logger.Warn().Err(err).
				Str("notification_id", n.NotificationID.String()).
				Str("target", n.TargetUserID).
				Msg("notification send failed")
			if markErr := n.MarkFailed(err.Error()); markErr == nil {
				if updErr := d.repo.Update(ctx, n); updErr != nil {
					d.logger.Error().Err(updErr).Str("notification_id", n.NotificationID.String()).Msg("failed to update notification status")
				}
			}
			return &notification.DeliveryError{Channel: notification.ChannelPush, Target: n.TargetUserID, Err: err}
		}
	}

	if err := n.MarkSent(); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if err := d.repo.Update(ctx, n); err != nil {
		d.logger.Error().Err(err).Str("notification_id", n.NotificationID.String()).Msg("failed to update notification status")
		return fmt.Errorf("failed to update notification: %w", err)
	}

	d.logger.Debug().
		Str("notification_id", n.NotificationID.String()).
		Str("type", string(n.Type)).
		Str("target", n.TargetUserID).
		Msg("notification dispatched")
	return nil
}

// PostChat hands msg to the chat transport and echoes it to the recipient's live clients.
func (d *Dispatcher) PostChat(ctx context.Context, msg *notification.ChatMessage) error {
	if d.chat == nil {
		return nil
	}
	if err := d.chat.PostMessage(ctx, msg); err != nil {
		d.logger.Warn().Err(err).
			Str("conversation_id", msg.ConversationID).
			Str("recipient", msg.RecipientID).
			Msg("chat message delivery failed")
		return &notification.DeliveryError{Channel: notification.ChannelChat, Target: msg.RecipientID, Err: err}
	}
	d.broadcast(msg.RecipientID, EventChatMessage, msg)
	return nil
}

func (d *Dispatcher) broadcast(userID, event string, v interface{}) {
	if d.hub == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		d.logger.Error().Err(err).Str("event", event).Msg("failed to encode SSE payload")
		return
	}
	delivered := d.hub.BroadcastToUser(userID, notification.NewSSEMessage(event, data))
	d.logger.Debug().Str("event", event).Str("target", userID).Int("clients", delivered).Msg("SSE broadcast")
}

// InvokeAction runs one inline action of a notification on behalf of its recipient.
func (d *Dispatcher) InvokeAction(ctx context.Context, actor booking.Actor, notificationID uuid.UUID, actionID string) error {
	n, err := d.repo.GetByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("failed to get notification: %w", err)
	}
	if n == nil {
		return booking.ErrNotFound
	}
	if n.TargetUserID != actor.UserID {
		return notification.ErrNotRecipient
	}
	if n.ActedAt != nil {
		return notification.ErrAlreadyActed
	}
	action, err := n.FindAction(actionID)
	if err != nil {
		return err
	}

	d.mu.RLock()
	h, ok := d.handlers[action.Effect]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", notification.ErrNoHandler, action.Effect)
	}

	if err := h.HandleAction(ctx, actor, action); err != nil {
		return err
	}

	if err := n.MarkActed(); err != nil {
		return err
	}
	if err := d.repo.Update(ctx, n); err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	d.logger.Info().
		Str("notification_id", n.NotificationID.String()).
		Str("action", action.ID).
		Str("actor", actor.UserID).
		Msg("notification action invoked")
	return nil
}

// ListForUser returns the inbox of userID, newest first.
func (d *Dispatcher) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*notification.Notification, error) {
	filter := notification.Filter{TargetUserID: &userID, Unread: unreadOnly}
	items, err := d.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

// MarkRead records that the recipient opened the notification.
func (d *Dispatcher) MarkRead(ctx context.Context, actor booking.Actor, notificationID uuid.UUID) (*notification.Notification, error) {
	n, err := d.repo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if n == nil {
		return nil, booking.ErrNotFound
	}
	if n.TargetUserID != actor.UserID {
		return nil, notification.ErrNotRecipient
	}
	if n.ReadAt != nil {
		return n, nil
	}
	n.MarkRead()
	if err := d.repo.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	return n, nil
}
