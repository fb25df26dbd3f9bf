package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0x6d61/securescout/internal/api"
	"github.com/0x6d61/securescout/internal/config"
	"github.com/0x6d61/securescout/internal/scan"
	"github.com/0x6d61/securescout/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Serve runs the SecureScout API server. Scan state is kept in the
configured snapshot store (SQLite file or Valkey) and survives restarts;
scans left pending or running by a previous process are resumed.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, 127.0.0.1:8000)")
	addStorageFlags(serveCmd)
	serveCmd.Flags().Bool("seed-demo", false, "Install demo scans when the store is empty")
}

func runServe(cmd *cobra.Command, args []string) error {
	// ------------------------------------------------------------------ //
	// 1. Configuration and logging
	// ------------------------------------------------------------------ //
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cmd.ErrOrStderr(), cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ------------------------------------------------------------------ //
	// 2. Snapshot store
	// ------------------------------------------------------------------ //
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("snapshot store ready", "driver", cfg.Storage.Driver)

	// ------------------------------------------------------------------ //
	// 3. Scan manager
	// ------------------------------------------------------------------ //
	manager, err := scan.New(ctx, store,
		scan.WithLogger(logger),
		scan.WithTiming(scan.Timing{
			StartDelay:   cfg.Simulator.StartDelay,
			TickInterval: cfg.Simulator.TickInterval,
			MaxIncrement: cfg.Simulator.MaxIncrement,
		}),
	)
	if err != nil {
		return err
	}
	defer manager.Close()

	if cfg.Server.SeedDemo && manager.SeedDemo(ctx) {
		fmt.Fprintln(cmd.OutOrStdout(), "[*] Installed demo scan history")
	}

	// ------------------------------------------------------------------ //
	// 4. Serve until interrupted
	// ------------------------------------------------------------------ //
	fmt.Fprintf(cmd.OutOrStdout(), "[*] Listening on %s\n", cfg.Server.Addr)
	server := api.New(manager, api.WithLogger(logger))
	return server.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}

// loadServeConfig applies the serve flags on top of loadConfig.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("seed-demo") {
		cfg.Server.SeedDemo, _ = flags.GetBool("seed-demo")
	}
	return applyStorageFlags(cmd, cfg)
}

func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("storage", "", "Snapshot store driver (sqlite, valkey)")
	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().String("valkey", "", "Valkey address (host:port)")
}

// applyStorageFlags layers the storage flags over cfg and re-validates it.
func applyStorageFlags(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("storage") {
		cfg.Storage.Driver, _ = flags.GetString("storage")
	}
	if flags.Changed("db") {
		cfg.Storage.Path, _ = flags.GetString("db")
	}
	if flags.Changed("valkey") {
		cfg.Storage.ValkeyAddr, _ = flags.GetString("valkey")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.Open(ctx, storage.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		Addr:   cfg.Storage.ValkeyAddr,
		Prefix: cfg.Storage.ValkeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	return store, nil
}
