package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rental-hub/rental-hub/internal/clock"
)

func newTickCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one visit clock pass",
		Long:  "Complete every confirmed or active visit whose scheduled time has passed, then exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTick(cmd, at)
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this RFC 3339 instant (default: now)")

	return cmd
}

func runTick(cmd *cobra.Command, at string) error {
	now := time.Now().UTC()
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		now = t
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStores(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer st.close()

	a, err := newApp(cfg, st, clock.NewManual(now), logger)
	if err != nil {
		return err
	}
	done, err := a.booking.TickVisitClock(ctx, now)
	a.audit.Flush()
	if err != nil {
		return err
	}
	for _, v := range done {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s %s\t%s\n", v.VisitID, v.ScheduledDate, v.ScheduledTime, v.Status)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d visit(s) completed\n", len(done))
	return nil
}
