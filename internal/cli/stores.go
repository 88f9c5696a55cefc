package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	httpapi "github.com/rental-hub/rental-hub/internal/api/http"
	"github.com/rental-hub/rental-hub/internal/config"
	"github.com/rental-hub/rental-hub/internal/domain/audit"
	"github.com/rental-hub/rental-hub/internal/domain/notification"
	"github.com/rental-hub/rental-hub/internal/domain/payment"
	"github.com/rental-hub/rental-hub/internal/domain/profile"
	"github.com/rental-hub/rental-hub/internal/domain/property"
	"github.com/rental-hub/rental-hub/internal/domain/reservation"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
	"github.com/rental-hub/rental-hub/internal/infrastructure/boltstore"
	"github.com/rental-hub/rental-hub/internal/infrastructure/postgres"
)

// chatLog is the conversation store: written by the dispatcher, read by the API.
type chatLog interface {
	notification.ChatTransport
	httpapi.ConversationReader
}

// stores is one backend's set of repositories.
type stores struct {
	visits        visit.Repository
	reservations  reservation.Repository
	payments      payment.Repository
	properties    property.Repository
	profiles      profile.Repository
	notifications notification.Repository
	audit         audit.Repository
	chat          chatLog
	close         func()
}

// openStores opens the configured backend. With migrate set, postgres schema
// files are applied before the repositories are returned.
func openStores(ctx context.Context, cfg *config.Config, migrate bool, logger zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if migrate {
			if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migration error: %w", err)
			}
			logger.Info().Str("dir", cfg.MigrationsDir).Msg("migrations applied")
		}
		return &stores{
			visits:        postgres.NewVisitRepository(pool),
			reservations:  postgres.NewReservationRepository(pool),
			payments:      postgres.NewPaymentRepository(pool),
			properties:    postgres.NewPropertyRepository(pool),
			profiles:      postgres.NewProfileRepository(pool),
			notifications: postgres.NewNotificationRepository(pool),
			audit:         postgres.NewAuditRepository(pool),
			chat:          postgres.NewChatLog(pool),
			close:         pool.Close,
		}, nil
	default:
		db, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("bolt error: %w", err)
		}
		logger.Info().Str("path", cfg.BoltPath).Msg("bolt store opened")
		return &stores{
			visits:        boltstore.NewVisitRepository(db),
			reservations:  boltstore.NewReservationRepository(db),
			payments:      boltstore.NewPaymentRepository(db),
			properties:    boltstore.NewPropertyRepository(db),
			profiles:      boltstore.NewProfileRepository(db),
			notifications: boltstore.NewNotificationRepository(db),
			audit:         boltstore.NewAuditRepository(db),
			chat:          boltstore.NewChatLog(db),
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn().Err(err).Msg("closing bolt store")
				}
			},
		}, nil
	}
}
