package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/rooksworth/magpie/internal/adapter/storage/sqlite"
	"github.com/rooksworth/magpie/internal/config"
	"github.com/rooksworth/magpie/internal/core"
	"github.com/rooksworth/magpie/internal/gateway"
	"github.com/rooksworth/magpie/internal/usecase/archive"
)

var rootCmd = &cobra.Command{
	Use:   "magpie",
	Short: "A minimal-configuration Discord bot for automatic pin archiving",
	Long: `magpie listens for pin events, copies pinned messages into a local
archive database (deduplicated by content fingerprint), and moves pins into a
designated archive channel when a channel runs out of pin slots.

Token resolution: MAGPIE_TOKEN (or a .env file), then the system keyring.
Run "magpie setup" to file a token in the keyring.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot()
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively store a bot token in the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Paste the Discord token to use for this bot (input hidden), then press enter > ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}
		return config.StoreToken(string(raw))
	},
}

var setTokenCmd = &cobra.Command{
	Use:   "set-token [token]",
	Short: "Store a provided token in the system keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.StoreToken(args[0])
	},
}

func runBot() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Token == "" {
		return config.ErrNoToken
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	filter, err := core.NewIgnoreFilter(cfg.IgnorePatterns, cfg.IgnoreRegex)
	if err != nil {
		return fmt.Errorf("invalid ignore patterns: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open archive db %s: %w", cfg.DBPath, err)
	}
	defer store.Close()

	svc := archive.New(store, filter, logger, archive.Config{
		OverflowThreshold: cfg.OverflowThreshold,
		RetentionCap:      cfg.RetentionCap,
	})

	listener, err := gateway.New(cfg.Token, svc, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting magpie", zap.String("db", cfg.DBPath))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(ctx) })
	if cfg.RetentionDays > 0 {
		g.Go(func() error { return runPruner(ctx, store, logger, cfg.RetentionDays) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shut down cleanly")
	return nil
}

// runPruner drops archived records older than the retention window, once an
// hour, until ctx is cancelled.
func runPruner(ctx context.Context, store *sqlite.Store, logger *zap.Logger, days int) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cutoff := store.Now().AddDate(0, 0, -days)
			n, err := store.PruneBefore(ctx, cutoff)
			if err != nil {
				logger.Error("prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("pruned old records", zap.Int("count", n), zap.Time("cutoff", cutoff))
			}
		}
	}
}

func main() {
	rootCmd.AddCommand(setupCmd, setTokenCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
