package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the configured store",
		Long:  "Apply the SQL migrations to postgres, or create the buckets of the bolt file.",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStores(context.Background(), cfg, true, logger)
	if err != nil {
		return err
	}
	st.close()
	fmt.Fprintf(cmd.OutOrStdout(), "%s store ready\n", cfg.StoreDriver)
	return nil
}
