package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0x6d61/securescout/internal/model"
	"github.com/0x6d61/securescout/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Browse scan reports and history summaries",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List finished scan reports",
	Args:  cobra.NoArgs,
	RunE:  runReportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize recent finished scans",
	Args:  cobra.NoArgs,
	RunE:  runReportSummary,
}

var reportStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count findings per vulnerability type",
	Args:  cobra.NoArgs,
	RunE:  runReportStats,
}

var reportDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportDelete,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportListCmd, reportShowCmd, reportSummaryCmd, reportStatsCmd, reportDeleteCmd)

	reportShowCmd.Flags().Bool("details", false, "Include test URLs and details of each finding")
	reportSummaryCmd.Flags().Int("days", report.DefaultSummaryDays, "Look-back window in days")
}

func runReportList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	reports, err := c.Reports().List(cmd.Context())
	if err != nil {
		return describe(err)
	}
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), reports)
	}
	printScanTable(cmd.OutOrStdout(), reports)
	return nil
}

func runReportShow(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	sc, err := c.Reports().Get(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}

	format, _ := cmd.Flags().GetString("format")
	reporter, err := report.New(format)
	if err != nil {
		return err
	}
	if tr, ok := reporter.(*report.TextReporter); ok {
		tr.Verbose, _ = cmd.Flags().GetBool("details")
	}
	return reporter.Generate(cmd.Context(), &sc, cmd.OutOrStdout())
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	if days < 1 {
		return fmt.Errorf("--days must be a positive integer")
	}
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	sum, err := c.Reports().Summary(cmd.Context(), days)
	if err != nil {
		return describe(err)
	}
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), sum)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Last %d day(s): %d scans, %d completed, %d failed\n",
		days, sum.TotalScans, sum.Completed, sum.Failed)
	fmt.Fprintln(out)
	for _, sev := range model.Severities {
		fmt.Fprintf(out, "  %-9s %d\n", sev, sum.SeverityCounts[sev])
	}
	if len(sum.VulnerabilitySummary) > 0 {
		fmt.Fprintln(out)
		printCounts(out, "TYPE", sum.VulnerabilitySummary)
	}
	return nil
}

func runReportStats(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	stats, err := c.Reports().VulnerabilityTypeStats(cmd.Context())
	if err != nil {
		return describe(err)
	}
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), stats)
	}
	if len(stats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No findings.")
		return nil
	}
	printCounts(cmd.OutOrStdout(), "TYPE", stats)
	return nil
}

func runReportDelete(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	msg, err := c.Reports().Delete(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[+] %s: %s\n", args[0], msg.Message)
	return nil
}
