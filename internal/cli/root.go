package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/securescout/internal/client"
	"github.com/0x6d61/securescout/internal/config"
	"github.com/0x6d61/securescout/internal/logging"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "securescout",
	Short: "Web vulnerability scan dashboard service",
	Long: `securescout - Web vulnerability scan dashboard service

Runs the SecureScout API server (scan queue, reports and scan configuration)
and talks to a running server from the command line.

Scans are simulated: progress and findings are generated from the configured
vulnerability definitions, no traffic is sent to the target.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Configuration
	rootCmd.PersistentFlags().String("config", "", "YAML config file")

	// Connection flags
	rootCmd.PersistentFlags().String("server", "", "API server URL (default from config, http://127.0.0.1:8000)")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().Float64("rate-limit", 0, "Maximum requests per second (0 = unlimited)")

	// Output flags
	rootCmd.PersistentFlags().IntP("verbose", "v", 0, "Verbosity level (0-3)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "Output format (text, json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "securescout %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// loadConfig layers the persistent flags that were set explicitly on top of
// the file and environment configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Client.Server, _ = flags.GetString("server")
	}
	if flags.Changed("timeout") {
		cfg.Client.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("rate-limit") {
		cfg.Client.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	return cfg, nil
}

// newLogger builds the command logger. -v wins over the configured level;
// without it client commands only report errors.
func newLogger(cmd *cobra.Command, w io.Writer, configured string) *slog.Logger {
	level := logging.VerbosityLevel(0)
	if configured != "" {
		level = logging.ParseLevel(configured)
	}
	if cmd.Flags().Changed("verbose") {
		verbose, _ := cmd.Flags().GetInt("verbose")
		level = logging.VerbosityLevel(verbose)
	}
	return logging.Setup(w, level)
}

// newAPIClient builds the API client for client commands.
func newAPIClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return client.New(client.Options{
		BaseURL:   cfg.Client.Server,
		Timeout:   cfg.Client.Timeout,
		MaxRPS:    cfg.Client.RateLimit,
		UserAgent: "securescout-cli/" + version,
		Logger:    newLogger(cmd, cmd.ErrOrStderr(), ""),
	})
}
