package booking

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	appNotification "github.com/rental-hub/rental-hub/internal/application/notification"
	"github.com/rental-hub/rental-hub/internal/clock"
	"github.com/rental-hub/rental-hub/internal/domain/audit"
	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	notificationMocks "github.com/rental-hub/rental-hub/internal/domain/notification/mocks"
	"github.com/rental-hub/rental-hub/internal/domain/property"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
	"github.com/rental-hub/rental-hub/internal/infrastructure/boltstore"
)

var (
	tenant = booking.Actor{UserID: "tenant-1"}
	owner  = booking.Actor{UserID: "owner-1"}
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []*audit.AuditEntry
}

func (r *recordingAudit) Log(_ context.Context, entry *audit.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions(entityID string) []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Action
	for _, e := range r.entries {
		if e.EntityID == entityID {
			out = append(out, e.Action)
		}
	}
	return out
}

// typeMatcher matches a *notification.Notification of the given type.
type typeMatcher struct {
	typ    notification.Type
	negate bool
}

func ofType(t notification.Type) gomock.Matcher    { return typeMatcher{typ: t} }
func notOfType(t notification.Type) gomock.Matcher { return typeMatcher{typ: t, negate: true} }

func (m typeMatcher) Matches(x any) bool {
	n, ok := x.(*notification.Notification)
	if !ok {
		return false
	}
	return (n.Type == m.typ) != m.negate
}

func (m typeMatcher) String() string {
	if m.negate {
		return "notification type != " + string(m.typ)
	}
	return "notification type == " + string(m.typ)
}

type harness struct {
	svc           *Service
	dispatcher    *appNotification.Dispatcher
	clock         *clock.Manual
	properties    *boltstore.PropertyRepository
	visits        *boltstore.VisitRepository
	reservations  *boltstore.ReservationRepository
	payments      *boltstore.PaymentRepository
	notifications *boltstore.NotificationRepository
	chat          *boltstore.ChatLog
	profiles      *boltstore.ProfileRepository
	push          *notificationMocks.MockTransport
	audit         *recordingAudit
	property      *property.Property
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	db, err := boltstore.Open(filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctrl := gomock.NewController(t)
	h := &harness{
		clock:         clock.NewManual(now),
		properties:    boltstore.NewPropertyRepository(db),
		visits:        boltstore.NewVisitRepository(db),
		reservations:  boltstore.NewReservationRepository(db),
		payments:      boltstore.NewPaymentRepository(db),
		notifications: boltstore.NewNotificationRepository(db),
		chat:          boltstore.NewChatLog(db),
		profiles:      boltstore.NewProfileRepository(db),
		push:          notificationMocks.NewMockTransport(ctrl),
		audit:         &recordingAudit{},
	}
	logger := zerolog.Nop()
	h.dispatcher = appNotification.NewDispatcher(h.notifications, nil, h.push, h.chat, logger)
	h.svc = NewService(h.visits, h.reservations, h.payments, h.properties, h.profiles, h.dispatcher, h.audit, h.clock, time.UTC, logger)
	h.dispatcher.RegisterHandler(notification.EffectVisitRespond, h.svc)
	h.dispatcher.RegisterHandler(notification.EffectReservationRespond, h.svc)

	h.property = &property.Property{
		PropertyID:   uuid.New(),
		OwnerID:      owner.UserID,
		Status:       property.StatusAvailable,
		MaxOccupants: 3,
		MonthlyRent:  1000,
	}
	require.NoError(t, h.properties.Upsert(context.Background(), h.property))
	return h
}

func (h *harness) allowPush() {
	h.push.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (h *harness) notificationsFor(t *testing.T, userID string, typ notification.Type) []*notification.Notification {
	t.Helper()
	items, err := h.notifications.List(context.Background(), notification.Filter{TargetUserID: &userID, Type: &typ}, 100, 0)
	require.NoError(t, err)
	return items
}

func (h *harness) requestVisit(t *testing.T, date, at string) *visit.Visit {
	t.Helper()
	v, err := h.svc.RequestVisit(context.Background(), tenant, RequestVisitInput{PropertyID: h.property.PropertyID, Date: date, Time: at})
	require.NoError(t, err)
	return v
}

func (h *harness) confirmedVisit(t *testing.T, date, at string) *visit.Visit {
	t.Helper()
	v := h.requestVisit(t, date, at)
	v, err := h.svc.RespondToVisit(context.Background(), owner, v.VisitID, visit.DecisionAccept)
	require.NoError(t, err)
	return v
}

var jan14 = time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC)

func TestService_RequestVisit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending visit and notifies the owner", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()

		v := h.requestVisit(t, "2024-01-15", "10:00")

		assert.Equal(t, visit.StatusPending, v.Status)
		assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), v.ScheduledAt)
		assert.Equal(t, "UTC", v.TimeZone)

		stored, err := h.visits.GetByID(ctx, v.VisitID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, visit.StatusPending, stored.Status)

		requests := h.notificationsFor(t, owner.UserID, notification.TypeVisitRequest)
		require.Len(t, requests, 1)
		require.Len(t, requests[0].Actions, 2)
		assert.Equal(t, notification.EffectVisitRespond, requests[0].Actions[0].Effect)
		assert.Equal(t, v.VisitID.String(), requests[0].Actions[0].Params["visitId"])
		assert.Equal(t, notification.StatusSent, requests[0].Status)

		msgs, err := h.chat.ListConversation(ctx, notification.ConversationID(v.PropertyID, tenant.UserID, owner.UserID), 10, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, owner.UserID, msgs[0].RecipientID)

		for _, userID := range []string{tenant.UserID, owner.UserID} {
			mirrored, err := h.profiles.ListForUser(ctx, userID, 10, 0)
			require.NoError(t, err)
			require.Len(t, mirrored, 1)
			assert.Equal(t, visit.StatusPending, mirrored[0].VisitStatus)
		}
		assert.Equal(t, []audit.Action{audit.ActionCreate}, h.audit.actions(v.VisitID.String()))
	})

	t.Run("uses the property time zone", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()
		h.property.TimeZone = "Europe/Paris"
		require.NoError(t, h.properties.Upsert(ctx, h.property))

		v := h.requestVisit(t, "2024-01-15", "10:00")

		assert.Equal(t, "Europe/Paris", v.TimeZone)
		assert.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), v.ScheduledAt)
	})

	t.Run("sold property fails without side effects", func(t *testing.T) {
		h := newHarness(t, jan14)
		// no push expectations: any delivery fails the test
		h.property.Status = property.StatusSold
		require.NoError(t, h.properties.Upsert(ctx, h.property))

		v, err := h.svc.RequestVisit(ctx, tenant, RequestVisitInput{PropertyID: h.property.PropertyID, Date: "2024-01-15", Time: "10:00"})

		require.Error(t, err)
		assert.Nil(t, v)
		assert.True(t, booking.IsPrecondition(err))

		visits, err := h.visits.List(ctx, visit.Filter{}, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, visits)
		assert.Empty(t, h.notificationsFor(t, owner.UserID, notification.TypeVisitRequest))
		msgs, err := h.chat.ListConversation(ctx, notification.ConversationID(h.property.PropertyID, tenant.UserID, owner.UserID), 10, 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)
		assert.Empty(t, h.audit.entries)
	})

	t.Run("unknown property is a precondition failure", func(t *testing.T) {
		h := newHarness(t, jan14)

		_, err := h.svc.RequestVisit(ctx, tenant, RequestVisitInput{PropertyID: uuid.New(), Date: "2024-01-15", Time: "10:00"})
		assert.True(t, booking.IsPrecondition(err))
	})

	t.Run("rejects past dates, owners and duplicates", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()

		_, err := h.svc.RequestVisit(ctx, tenant, RequestVisitInput{PropertyID: h.property.PropertyID, Date: "2024-01-13", Time: "10:00"})
		assert.True(t, booking.IsPrecondition(err), "past date")

		_, err = h.svc.RequestVisit(ctx, owner, RequestVisitInput{PropertyID: h.property.PropertyID, Date: "2024-01-15", Time: "10:00"})
		assert.True(t, booking.IsPrecondition(err), "owner")

		h.requestVisit(t, "2024-01-14", "18:00")
		_, err = h.svc.RequestVisit(ctx, tenant, RequestVisitInput{PropertyID: h.property.PropertyID, Date: "2024-01-16", Time: "10:00"})
		assert.True(t, booking.IsPrecondition(err), "open visit")
	})

	t.Run("malformed time is a validation error", func(t *testing.T) {
		h := newHarness(t, jan14)

		_, err := h.svc.RequestVisit(ctx, tenant, RequestVisitInput{PropertyID: h.property.PropertyID, Date: "2024-01-15", Time: "25:99"})
		verr, ok := booking.AsValidation(err)
		require.True(t, ok)
		assert.True(t, verr.HasRule("time_format"))
	})
}

func TestService_RespondToVisit(t *testing.T) {
	ctx := context.Background()

	t.Run("accept confirms and notifies the requester", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()
		v := h.requestVisit(t, "2024-01-15", "10:00")

		got, err := h.svc.RespondToVisit(ctx, owner, v.VisitID, visit.DecisionAccept)
		require.NoError(t, err)
		assert.Equal(t, visit.StatusConfirmed, got.Status)
		assert.NotNil(t, got.RespondedAt)

		assert.Len(t, h.notificationsFor(t, tenant.UserID, notification.TypeVisitConfirmed), 1)
		mirrored, err := h.profiles.ListForUser(ctx, owner.UserID, 10, 0)
		require.NoError(t, err)
		require.Len(t, mirrored, 1)
		assert.Equal(t, visit.StatusConfirmed, mirrored[0].VisitStatus)
		assert.Equal(t, []audit.Action{audit.ActionCreate, audit.ActionApprove}, h.audit.actions(v.VisitID.String()))
	})

	t.Run("reject cancels", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()
		v := h.requestVisit(t, "2024-01-15", "10:00")

		got, err := h.svc.RespondToVisit(ctx, owner, v.VisitID, visit.DecisionReject)
		require.NoError(t, err)
		assert.Equal(t, visit.StatusCancelled, got.Status)
		assert.Len(t, h.notificationsFor(t, tenant.UserID, notification.TypeVisitRejected), 1)
	})

	t.Run("only the owner may respond", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()
		v := h.requestVisit(t, "2024-01-15", "10:00")

		_, err := h.svc.RespondToVisit(ctx, tenant, v.VisitID, visit.DecisionAccept)
		assert.True(t, booking.IsPrecondition(err))
	})

	t.Run("responding to a cancelled visit does not mutate it", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()
		v := h.requestVisit(t, "2024-01-15", "10:00")
		_, err := h.svc.RespondToVisit(ctx, owner, v.VisitID, visit.DecisionReject)
		require.NoError(t, err)
		before, err := h.visits.GetByID(ctx, v.VisitID)
		require.NoError(t, err)

		_, err = h.svc.RespondToVisit(ctx, owner, v.VisitID, visit.DecisionAccept)

		assert.True(t, booking.IsInvalidTransition(err))
		after, err := h.visits.GetByID(ctx, v.VisitID)
		require.NoError(t, err)
		assert.Equal(t, visit.StatusCancelled, after.Status)
		assert.Equal(t, before.Version, after.Version)
	})

	t.Run("confirmed visit cannot be rejected through respond", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()
		v := h.confirmedVisit(t, "2024-01-15", "10:00")

		_, err := h.svc.RespondToVisit(ctx, owner, v.VisitID, visit.DecisionReject)
		assert.True(t, booking.IsInvalidTransition(err))
	})

	t.Run("unknown visit", func(t *testing.T) {
		h := newHarness(t, jan14)

		_, err := h.svc.RespondToVisit(ctx, owner, uuid.New(), visit.DecisionAccept)
		assert.ErrorIs(t, err, booking.ErrNotFound)
	})
}

func TestService_RespondToVisit_Concurrent(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		t.Run(fmt.Sprintf("round %d", i), func(t *testing.T) {
			h := newHarness(t, jan14)
			h.allowPush()
			v := h.requestVisit(t, "2024-01-15", "10:00")

			decisions := []visit.Decision{visit.DecisionAccept, visit.DecisionReject}
			results := make([]*visit.Visit, len(decisions))
			errs := make([]error, len(decisions))
			start := make(chan struct{})
			var wg sync.WaitGroup
			for j, d := range decisions {
				wg.Add(1)
				go func(j int, d visit.Decision) {
					defer wg.Done()
					<-start
					results[j], errs[j] = h.svc.RespondToVisit(ctx, owner, v.VisitID, d)
				}(j, d)
			}
			close(start)
			wg.Wait()

			winners := 0
			var winner *visit.Visit
			for j := range decisions {
				if errs[j] == nil {
					winners++
					winner = results[j]
				} else {
					assert.True(t, booking.IsInvalidTransition(errs[j]), "loser must see an invalid transition: %v", errs[j])
				}
			}
			require.Equal(t, 1, winners)

			stored, err := h.visits.GetByID(ctx, v.VisitID)
			require.NoError(t, err)
			assert.Equal(t, winner.Status, stored.Status)
		})
	}
}

func TestService_TickVisitClock(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed visit completes once after its time", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.push.EXPECT().Send(gomock.Any(), notOfType(notification.TypeVisitCompleted)).Return(nil).AnyTimes()
		h.push.EXPECT().Send(gomock.Any(), ofType(notification.TypeVisitCompleted)).Return(nil).Times(1)
		v := h.confirmedVisit(t, "2024-01-15", "10:00")

		h.clock.Set(time.Date(2024, 1, 15, 9, 59, 0, 0, time.UTC))
		done, err := h.svc.TickVisitClock(ctx, h.clock.Now())
		require.NoError(t, err)
		assert.Empty(t, done)

		h.clock.Set(time.Date(2024, 1, 15, 10, 1, 0, 0, time.UTC))
		done, err = h.svc.TickVisitClock(ctx, h.clock.Now())
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, v.VisitID, done[0].VisitID)
		assert.Equal(t, visit.StatusCompleted, done[0].Status)

		done, err = h.svc.TickVisitClock(ctx, h.clock.Now())
		require.NoError(t, err)
		assert.Empty(t, done)

		stored, err := h.visits.GetByID(ctx, v.VisitID)
		require.NoError(t, err)
		assert.Equal(t, visit.StatusCompleted, stored.Status)
		assert.Len(t, h.notificationsFor(t, tenant.UserID, notification.TypeVisitCompleted), 1)
		assert.Contains(t, h.audit.actions(v.VisitID.String()), audit.ActionComplete)
	})

	t.Run("repeated ticks with a fixed now converge", func(t *testing.T) {
		for n := 1; n <= 4; n++ {
			h := newHarness(t, jan14)
			h.allowPush()
			v := h.confirmedVisit(t, "2024-01-15", "10:00")
			now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

			total := 0
			for i := 0; i < n; i++ {
				done, err := h.svc.TickVisitClock(ctx, now)
				require.NoError(t, err)
				total += len(done)
			}
			assert.Equal(t, 1, total)
			stored, err := h.visits.GetByID(ctx, v.VisitID)
			require.NoError(t, err)
			assert.Equal(t, visit.StatusCompleted, stored.Status)
			assert.Equal(t, 3, stored.Version)
		}
	})

	t.Run("pending visits are left alone", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()
		v := h.requestVisit(t, "2024-01-15", "10:00")

		done, err := h.svc.TickVisitClock(ctx, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Empty(t, done)
		stored, err := h.visits.GetByID(ctx, v.VisitID)
		require.NoError(t, err)
		assert.Equal(t, visit.StatusPending, stored.Status)
	})

	t.Run("active visits complete too", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.allowPush()
		v := h.confirmedVisit(t, "2024-01-15", "10:00")
		_, err := h.svc.StartVisit(ctx, tenant, v.VisitID)
		require.NoError(t, err)

		done, err := h.svc.TickVisitClock(ctx, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, done, 1)
	})

	t.Run("manual completion and tick share one transition", func(t *testing.T) {
		h := newHarness(t, jan14)
		h.push.EXPECT().Send(gomock.Any(), notOfType(notification.TypeVisitCompleted)).Return(nil).AnyTimes()
		h.push.EXPECT().Send(gomock.Any(), ofType(notification.TypeVisitCompleted)).Return(nil).Times(1)
		v := h.confirmedVisit(t, "2024-01-15", "10:00")
		now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		h.clock.Set(now)

		var wg sync.WaitGroup
		var manualErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, manualErr = h.svc.CompleteVisit(ctx, tenant, v.VisitID)
		}()
		go func() {
			defer wg.Done()
			_, _ = h.svc.TickVisitClock(ctx, now)
		}()
		wg.Wait()

		if manualErr != nil {
			assert.True(t, booking.IsInvalidTransition(manualErr))
		}
		assert.Len(t, h.notificationsFor(t, tenant.UserID, notification.TypeVisitCompleted), 1)
	})
}

func TestService_CancelVisit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, jan14)
	h.allowPush()
	v := h.confirmedVisit(t, "2024-01-15", "10:00")

	got, err := h.svc.CancelVisit(ctx, tenant, v.VisitID)
	require.NoError(t, err)
	assert.Equal(t, visit.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, "user:tenant-1", *got.CancelledBy)
	assert.Len(t, h.notificationsFor(t, owner.UserID, notification.TypeVisitCancelled), 1)

	_, err = h.svc.CancelVisit(ctx, tenant, v.VisitID)
	assert.True(t, booking.IsInvalidTransition(err))

	_, err = h.svc.CancelVisit(ctx, booking.Actor{UserID: "stranger"}, v.VisitID)
	assert.True(t, booking.IsPrecondition(err))
}

func TestService_RequestVisit_OpenVisitBlocksWithFrozenClock(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 10; round++ {
		h := newHarness(t, jan14)
		h.allowPush()

		first := h.requestVisit(t, "2024-01-15", "10:00")
		_, err := h.svc.CancelVisit(ctx, tenant, first.VisitID)
		require.NoError(t, err)

		open := h.requestVisit(t, "2024-01-16", "10:00")
		_, err = h.svc.RequestVisit(ctx, tenant, RequestVisitInput{
			PropertyID: h.property.PropertyID,
			Date:       "2024-01-17",
			Time:       "10:00",
		})
		require.True(t, booking.IsPrecondition(err), "round %d: visit %s is still open", round, open.VisitID)
	}
}

func TestService_InvokeNotificationAction(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, jan14)
	h.allowPush()
	v := h.requestVisit(t, "2024-01-15", "10:00")
	requests := h.notificationsFor(t, owner.UserID, notification.TypeVisitRequest)
	require.Len(t, requests, 1)

	err := h.dispatcher.InvokeAction(ctx, owner, requests[0].NotificationID, "accept")
	require.NoError(t, err)

	stored, err := h.visits.GetByID(ctx, v.VisitID)
	require.NoError(t, err)
	assert.Equal(t, visit.StatusConfirmed, stored.Status)

	err = h.dispatcher.InvokeAction(ctx, owner, requests[0].NotificationID, "reject")
	assert.ErrorIs(t, err, notification.ErrAlreadyActed)
}

func TestService_HandleAction_BadParams(t *testing.T) {
	h := newHarness(t, jan14)

	err := h.svc.HandleAction(context.Background(), owner, notification.Action{ID: "accept", Effect: notification.EffectVisitRespond, Params: map[string]string{"visitId": "nope"}})
	assert.True(t, booking.IsPrecondition(err))

	err = h.svc.HandleAction(context.Background(), owner, notification.Action{ID: "x", Effect: "unknown"})
	assert.ErrorIs(t, err, notification.ErrNoHandler)
}

func TestLockSet(t *testing.T) {
	l := newLockSet()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("visit:1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.size())
}
