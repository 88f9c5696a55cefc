// Package cli defines the cobra command tree for rental-hub.
package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rental-hub/rental-hub/internal/config"
)

var flagConfig string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rental-hub",
		Short:         "Visit and reservation lifecycle service",
		Long:          "Runs the booking workflow for rental listings: visits, reservations, payments, contracts and the notifications that drive them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (default: $RENTAL_HUB_CONFIG)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newTickCmd(),
	)

	return root
}

// loadConfig reads configuration, honouring the --config flag over RENTAL_HUB_CONFIG.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	if flagConfig != "" {
		if err := os.Setenv("RENTAL_HUB_CONFIG", flagConfig); err != nil {
			return nil, zerolog.Nop(), err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config error: %w", err)
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

func loadHexKey(hexStr string) ([]byte, error) {
	if hexStr == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("AUDIT_SIGNING_KEY must be hex: %w", err)
	}
	return b, nil
}
