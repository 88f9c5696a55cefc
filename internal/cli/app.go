package cli

import (
	"github.com/rs/zerolog"

	appActivity "github.com/rental-hub/rental-hub/internal/application/activity"
	appAudit "github.com/rental-hub/rental-hub/internal/application/audit"
	appBooking "github.com/rental-hub/rental-hub/internal/application/booking"
	appNotification "github.com/rental-hub/rental-hub/internal/application/notification"
	"github.com/rental-hub/rental-hub/internal/clock"
	"github.com/rental-hub/rental-hub/internal/config"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/infrastructure/push"
	"github.com/rental-hub/rental-hub/internal/infrastructure/sse"
)

// app is the wired service graph shared by the commands.
type app struct {
	stores     *stores
	hub        *sse.Hub
	dispatcher *appNotification.Dispatcher
	audit      *appAudit.Service
	booking    *appBooking.Service
	activity   *appActivity.Service
}

func newApp(cfg *config.Config, st *stores, clk clock.Clock, logger zerolog.Logger) (*app, error) {
	auditKey, err := loadHexKey(cfg.AuditSigningKey)
	if err != nil {
		return nil, err
	}

	var transport notification.Transport
	if cfg.PushWebhookURL != "" {
		transport = push.NewWebhookTransport(cfg.PushWebhookURL, cfg.PushRatePerSecond, cfg.PushBurst, logger)
	} else {
		transport = push.NewLogTransport(logger)
	}

	hub := sse.NewHub()
	dispatcher := appNotification.NewDispatcher(st.notifications, hub, transport, st.chat, logger)
	auditSvc := appAudit.NewService(st.audit, logger, auditKey)
	bookingSvc := appBooking.NewService(
		st.visits,
		st.reservations,
		st.payments,
		st.properties,
		st.profiles,
		dispatcher,
		auditSvc,
		clk,
		cfg.Location(),
		logger,
	)
	dispatcher.RegisterHandler(notification.EffectVisitRespond, bookingSvc)
	dispatcher.RegisterHandler(notification.EffectReservationRespond, bookingSvc)

	return &app{
		stores:     st,
		hub:        hub,
		dispatcher: dispatcher,
		audit:      auditSvc,
		booking:    bookingSvc,
		activity:   appActivity.NewService(st.visits, st.reservations, st.payments, st.profiles, logger),
	}, nil
}
