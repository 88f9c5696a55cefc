package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/rental-hub/rental-hub/internal/api/http"
	"github.com/rental-hub/rental-hub/internal/application/scheduler"
	"github.com/rental-hub/rental-hub/internal/clock"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the visit clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: SERVER_ADDR)")

	return cmd
}

func runServe(addr string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer st.close()

	a, err := newApp(cfg, st, clock.System{}, logger)
	if err != nil {
		return err
	}
	defer a.hub.Stop()

	apiServer := httpapi.NewServer(a.booking, a.activity, a.dispatcher, a.audit, st.chat, st.properties, a.hub, logger)
	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	sched := scheduler.New(a.booking, scheduler.NewTicker(cfg.VisitTickInterval), clock.System{}, logger)
	stopScheduler := startScheduler(ctx, sched, a.audit.Flush)
	defer stopScheduler()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Str("store", cfg.StoreDriver).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
	}
	return nil
}

// startScheduler runs sched in the background. The returned stop cancels it, waits for
// an in-flight tick to return, then calls flush.
func startScheduler(ctx context.Context, sched *scheduler.Scheduler, flush func()) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
		flush()
	}
}
