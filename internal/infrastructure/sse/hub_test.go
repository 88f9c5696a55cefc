package sse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rental-hub/rental-hub/internal/domain/notification"
)

func TestHub_BroadcastToUser(t *testing.T) {
	h := NewHub()
	phone := notification.NewSSEClient("c1", "tenant-1")
	laptop := notification.NewSSEClient("c2", "tenant-1")
	other := notification.NewSSEClient("c3", "owner-1")
	h.Register(phone)
	h.Register(laptop)
	h.Register(other)
	assert.Equal(t, 3, h.GetClientCount())

	msg := notification.NewSSEMessage("notification", json.RawMessage(`{"type":"visit_confirmed"}`))
	assert.Equal(t, 2, h.BroadcastToUser("tenant-1", msg))
	assert.Equal(t, 0, h.BroadcastToUser("nobody", msg))

	assert.Same(t, msg, <-phone.MessageChan)
	assert.Same(t, msg, <-laptop.MessageChan)
	assert.Len(t, other.MessageChan, 0)
}

func TestHub_FullBufferDropsMessage(t *testing.T) {
	h := NewHub()
	c := &notification.SSEClient{ClientID: "c1", UserID: "u1", MessageChan: make(chan *notification.SSEMessage, 1)}
	h.Register(c)

	msg := notification.NewSSEMessage("notification", nil)
	assert.Equal(t, 1, h.BroadcastToUser("u1", msg))
	assert.Equal(t, 0, h.BroadcastToUser("u1", msg))
	assert.ErrorIs(t, h.SendToClient("c1", msg), notification.ErrChannelFull)
	assert.ErrorIs(t, h.SendToClient("missing", msg), notification.ErrClientNotFound)
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	h := NewHub()
	c := notification.NewSSEClient("c1", "u1")
	h.Register(c)
	h.Unregister("c1")

	_, open := <-c.MessageChan
	require.False(t, open)
	assert.Equal(t, 0, h.GetClientCount())

	h.Unregister("c1")
	h.Stop()
}
