package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	reservationID := uuid.New()

	p, err := New(reservationID, "tenant-1", "owner-1", 1000, "EUR", MethodCard, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, reservationID, p.ReservationID)
	assert.Equal(t, "owner-1", p.PayeeID)
	assert.Nil(t, p.CompletedAt)

	_, err = New(reservationID, "tenant-1", "owner-1", 0, "EUR", MethodCard, now)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = New(reservationID, "tenant-1", "owner-1", 1000, "EUR", Method("CASH"), now)
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestPayment_Complete(t *testing.T) {
	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	p, err := New(uuid.New(), "tenant-1", "owner-1", 1000, "EUR", MethodTransfer, now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	require.NoError(t, p.Complete(later))
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.True(t, p.CompletedAt.Equal(later))

	assert.ErrorIs(t, p.Complete(later), ErrInvalidTransition)
}

func TestPayment_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusNone, StatusPending, true},
		{StatusNone, StatusCompleted, false},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusNone, false},
		{StatusCompleted, StatusPending, false},
	}
	for _, tt := range tests {
		p := &Payment{Status: tt.from}
		assert.Equal(t, tt.want, p.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestValidMethod(t *testing.T) {
	assert.True(t, ValidMethod("CARD"))
	assert.True(t, ValidMethod("WALLET"))
	assert.False(t, ValidMethod("card"))
	assert.False(t, ValidMethod(""))
}
