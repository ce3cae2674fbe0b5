package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "rentalscope",
		Short:        "Position and rental reader for V3 liquidity positions",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "List the positions owned by one or more accounts",
		RunE:  runPositions,
	}
	addCommonFlags(positionsCmd)
	positionsCmd.Flags().StringSlice("account", nil, "owner accounts (comma-separated)")
	root.AddCommand(positionsCmd)

	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Read a single position by token id",
		RunE:  runPosition,
	}
	addCommonFlags(positionCmd)
	positionCmd.Flags().String("token-id", "", "position token id")
	root.AddCommand(positionCmd)

	rentalsCmd := &cobra.Command{
		Use:   "rentals",
		Short: "List in-progress rentals whose renter is the account",
		RunE:  runRentals,
	}
	addCommonFlags(rentalsCmd)
	rentalsCmd.Flags().StringSlice("account", nil, "renter accounts (comma-separated)")
	rentalsCmd.Flags().Bool("with-positions", false, "also resolve the rented positions")
	root.AddCommand(rentalsCmd)

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Preview a position or a rental offer before confirming it",
		RunE:  runReview,
	}
	addCommonFlags(reviewCmd)
	reviewCmd.Flags().String("token-id", "", "position token id")
	reviewCmd.Flags().Uint64("rental-duration", 0, "rental duration in seconds, 0 previews the position itself")
	reviewCmd.Flags().String("rental-price", "", "rental price in ETH, shown as given")
	reviewCmd.Flags().String("account", "", "account whose rental badge is shown")
	root.AddCommand(reviewCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Ethereum RPC URL")
	cmd.Flags().String("position-manager", "", "nonfungible position manager address")
	cmd.Flags().String("rent-router", "", "rent router address")
	cmd.Flags().String("rental-escrow", "", "rental escrow address")
	cmd.Flags().String("factory", "", "V3 factory address")
	cmd.Flags().String("multicall", "0xcA11bde05977b3631167028862bE2a173976CA11", "Multicall3 address, empty disables batching")
	cmd.Flags().Int("batch-size", 100, "reads per multicall batch")
	cmd.Flags().Int("concurrency", 4, "concurrent batches in flight")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts per batch")
	cmd.Flags().Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	cmd.Flags().Duration("timeout", 30*time.Second, "time allowed for one evaluation")
	cmd.Flags().String("failure-mode", "all-or-nothing", "failed read handling (all-or-nothing, best-effort)")
	cmd.Flags().Bool("enforce-expiry", true, "drop rentals whose expiry has passed")
	cmd.Flags().Bool("chain-time", false, "compare expiry against the latest block time instead of the local clock")
	cmd.Flags().Bool("follow", false, "keep re-reading and emit every changed result")
	cmd.Flags().Duration("poll-interval", 12*time.Second, "revalidation interval in follow mode")
	cmd.Flags().String("out", "", "output JSONL path, stdout when empty")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for upserting resolved records")
	cmd.Flags().String("metrics-addr", "", "address to serve Prometheus metrics on, disabled when empty")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
