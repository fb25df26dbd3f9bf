package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0x6d61/securescout/internal/configproxy"
	"github.com/0x6d61/securescout/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change the server's scan configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the scan configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update scan configuration fields",
	Example: `  securescout config set --concurrent 5
  securescout config set --modules sql_injection,xss --timeout 120`,
	Args: cobra.NoArgs,
	RunE: runConfigSet,
}

var configRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the vulnerability definitions",
	Args:  cobra.NoArgs,
	RunE:  runConfigRules,
}

var configRuleCmd = &cobra.Command{
	Use:   "rule <type>",
	Short: "Update one vulnerability definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigRule,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in scan configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigReset,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd, configRulesCmd, configRuleCmd, configResetCmd)

	configSetCmd.Flags().Int("timeout", 0, "Per-scan timeout in seconds")
	configSetCmd.Flags().Int("concurrent", 0, "Maximum number of active scans")
	configSetCmd.Flags().String("user-agent", "", "User-Agent sent by scans")
	configSetCmd.Flags().StringSlice("modules", nil, "Default modules for new scans")

	configRuleCmd.Flags().String("severity", "", "Severity (Low, Medium, High, Critical)")
	configRuleCmd.Flags().String("description", "", "Description")
	configRuleCmd.Flags().StringSlice("patterns", nil, "Detection patterns (replaces the list)")
}

// newConfigStore returns a configuration store backed by the API server.
func newConfigStore(cmd *cobra.Command) (*configproxy.Store, error) {
	c, err := newAPIClient(cmd)
	if err != nil {
		return nil, err
	}
	return configproxy.New(c.Config(), slog.Default().With("component", "config")), nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	store, err := newConfigStore(cmd)
	if err != nil {
		return err
	}
	cfg, err := store.Fetch(cmd.Context())
	if err != nil {
		return describe(err)
	}
	return printConfig(cmd, cfg)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	var patch model.ConfigPatch
	if flags.Changed("timeout") {
		v, _ := flags.GetInt("timeout")
		patch.Timeout = &v
	}
	if flags.Changed("concurrent") {
		v, _ := flags.GetInt("concurrent")
		patch.ConcurrentScans = &v
	}
	if flags.Changed("user-agent") {
		v, _ := flags.GetString("user-agent")
		patch.UserAgent = &v
	}
	if flags.Changed("modules") {
		patch.DefaultModules, _ = flags.GetStringSlice("modules")
	}
	if patch.Empty() {
		return fmt.Errorf("nothing to update: set at least one of --timeout, --concurrent, --user-agent, --modules")
	}

	store, err := newConfigStore(cmd)
	if err != nil {
		return err
	}
	cfg, err := store.Update(cmd.Context(), patch)
	if err != nil {
		return describe(err)
	}
	return printConfig(cmd, cfg)
}

func runConfigRules(cmd *cobra.Command, args []string) error {
	store, err := newConfigStore(cmd)
	if err != nil {
		return err
	}
	defs, err := store.FetchLibrary(cmd.Context())
	if err != nil {
		return describe(err)
	}
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), defs)
	}
	printDefinitions(cmd.OutOrStdout(), defs)
	return nil
}

func runConfigRule(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	var patch model.RulePatch
	if flags.Changed("severity") {
		v, _ := flags.GetString("severity")
		patch.Severity = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		patch.Description = &v
	}
	if flags.Changed("patterns") {
		patch.Patterns, _ = flags.GetStringSlice("patterns")
	}
	if patch.Severity == nil && patch.Description == nil && patch.Patterns == nil {
		return fmt.Errorf("nothing to update: set at least one of --severity, --description, --patterns")
	}

	store, err := newConfigStore(cmd)
	if err != nil {
		return err
	}
	def, err := store.UpdateRule(cmd.Context(), args[0], patch)
	if err != nil {
		return describe(err)
	}
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), def)
	}
	printDefinitions(cmd.OutOrStdout(), model.Definitions{args[0]: def})
	return nil
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	store, err := newConfigStore(cmd)
	if err != nil {
		return err
	}
	cfg, err := store.Reset(cmd.Context())
	if err != nil {
		return describe(err)
	}
	return printConfig(cmd, cfg)
}

func printConfig(cmd *cobra.Command, cfg model.ScanConfig) error {
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), cfg)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Timeout:          %ds\n", cfg.Timeout)
	fmt.Fprintf(out, "Concurrent scans: %d\n", cfg.ConcurrentScans)
	fmt.Fprintf(out, "User-Agent:       %s\n", cfg.UserAgent)
	fmt.Fprintf(out, "Default modules:  %s\n", strings.Join(cfg.DefaultModules, ", "))
	fmt.Fprintln(out)
	printDefinitions(out, cfg.VulnerabilityDefinitions)
	return nil
}

func printDefinitions(w io.Writer, defs model.Definitions) {
	names := make([]string, 0, len(defs))
	for k := range defs {
		names = append(names, k)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSEVERITY\tPATTERNS")
	for _, n := range names {
		d := defs[n]
		fmt.Fprintf(tw, "%s\t%s\t%d\n", n, d.Severity, len(d.Patterns))
	}
	tw.Flush()
}
