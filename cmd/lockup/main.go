// Command lockup deploys XNET vesting wallets and maintains the per-network
// beneficiary ledgers. Everything is configured through the environment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xnet.company/lockup/internal/config"
	"xnet.company/lockup/internal/console"
	"xnet.company/lockup/internal/types"
)

var (
	cfg    *config.Config
	logger *zap.Logger
	out    *console.Printer
)

var rootCmd = &cobra.Command{
	Use:   "lockup",
	Short: "Deploy XNET vesting wallets from beneficiary lists",
	Long: `lockup reads a list of beneficiaries for a network, deploys one
XNETLockup (or XNETLockup2, with an escrow agent) wallet for each
beneficiary not deployed before, and records the result in the
network's deployed ledger.

Configuration comes from the environment: NETWORK, ESCROWADDR,
PRIVATE_KEY or KEY_FILE, and <NETWORK>_API_URL.`,
	Version:       fmt.Sprintf("%s (%s)", types.Version, types.BuildTime),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		out = console.NewPrinter(os.Stdout, !cfg.NoColor)

		zc := zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if cfg.Verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(
		mergeCmd,
		deployCmd,
		deployEscrowCmd,
		deployTokenCmd,
		showCmd,
		reportCmd,
		historyCmd,
		stakeStatusCmd,
		keygenCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		color := cfg == nil || !cfg.NoColor
		console.NewPrinter(os.Stderr, color).RedLog(err.Error())
		os.Exit(1)
	}
}
