package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/securescout/internal/client"
	"github.com/0x6d61/securescout/internal/model"
	"github.com/0x6d61/securescout/internal/report"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Start, inspect and manage scans",
}

var scanStartCmd = &cobra.Command{
	Use:   "start <url>",
	Short: "Start a scan of one URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanStart,
}

var scanBatchCmd = &cobra.Command{
	Use:   "batch <url>...",
	Short: "Start one scan per URL",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScanBatch,
}

var scanStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show one scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanStatus,
}

var scanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scans",
	Args:  cobra.NoArgs,
	RunE:  runScanList,
}

var scanCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a pending or running scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanCancel,
}

var scanDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a finished scan and its report",
	Args:  cobra.ExactArgs(1),
	RunE:  runScanDelete,
}

var scanClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every finished scan and every report",
	Args:  cobra.NoArgs,
	RunE:  runScanClear,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanStartCmd, scanBatchCmd, scanStatusCmd, scanListCmd, scanCancelCmd, scanDeleteCmd, scanClearCmd)

	scanStartCmd.Flags().StringSliceP("modules", "m", nil, "Modules to run (default from server config)")
	scanStartCmd.Flags().Bool("wait", false, "Wait for the scan to finish and print its report")
	scanStartCmd.Flags().Duration("poll", time.Second, "Status poll interval with --wait")
	scanBatchCmd.Flags().StringSliceP("modules", "m", nil, "Modules to run (default from server config)")
	scanListCmd.Flags().Bool("active", false, "Only list pending and running scans")
}

func runScanStart(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	modules, _ := cmd.Flags().GetStringSlice("modules")
	wait, _ := cmd.Flags().GetBool("wait")
	poll, _ := cmd.Flags().GetDuration("poll")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	resp, err := c.Scans().Start(ctx, args[0], modules)
	if err != nil {
		return describe(err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[+] %s %s: %s\n", resp.ScanID, resp.URL, resp.Message)
	if !wait {
		return nil
	}

	sc, err := waitForScan(ctx, c, resp.ScanID, poll, out)
	if err != nil {
		return err
	}
	return renderScan(cmd, &sc)
}

// waitForScan polls until the scan leaves the active states.
func waitForScan(ctx context.Context, c *client.Client, id string, poll time.Duration, out io.Writer) (model.Scan, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	last := -1
	for {
		sc, err := c.Scans().Status(ctx, id)
		if err != nil {
			return model.Scan{}, describe(err)
		}
		if sc.Progress != last {
			fmt.Fprintf(out, "[*] %s %s %d%%\n", sc.ID, sc.Status, sc.Progress)
			last = sc.Progress
		}
		if sc.Status.Terminal() {
			return sc, nil
		}
		select {
		case <-ctx.Done():
			return model.Scan{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func runScanBatch(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	modules, _ := cmd.Flags().GetStringSlice("modules")

	responses, err := c.Scans().Batch(cmd.Context(), args, modules)
	if err != nil {
		return describe(err)
	}
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), responses)
	}

	rejected := 0
	for _, r := range responses {
		if r.Status == model.ResponseStarted {
			fmt.Fprintf(cmd.OutOrStdout(), "[+] %s %s\n", r.ScanID, r.URL)
		} else {
			rejected++
			fmt.Fprintf(cmd.OutOrStdout(), "[-] %s: %s\n", r.URL, r.Message)
		}
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d scans rejected", rejected, len(responses))
	}
	return nil
}

func runScanStatus(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	sc, err := c.Scans().Status(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	return renderScan(cmd, &sc)
}

func runScanList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	active, _ := cmd.Flags().GetBool("active")

	var scans []model.Scan
	if active {
		scans, err = c.Scans().Active(cmd.Context())
	} else {
		scans, err = c.Scans().List(cmd.Context())
	}
	if err != nil {
		return describe(err)
	}
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), scans)
	}
	printScanTable(cmd.OutOrStdout(), scans)
	return nil
}

func runScanCancel(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	sc, err := c.Scans().Cancel(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[+] %s cancelled at %d%%\n", sc.ID, sc.Progress)
	return nil
}

func runScanDelete(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	msg, err := c.Scans().Delete(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[+] %s: %s\n", args[0], msg.Message)
	return nil
}

func runScanClear(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient(cmd)
	if err != nil {
		return err
	}
	msg, err := c.Scans().Clear(cmd.Context())
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[+] %s\n", msg.Message)
	return nil
}

// renderScan prints one scan with the reporter selected by --format.
func renderScan(cmd *cobra.Command, sc *model.Scan) error {
	format, _ := cmd.Flags().GetString("format")
	reporter, err := report.New(format)
	if err != nil {
		return err
	}
	if tr, ok := reporter.(*report.TextReporter); ok {
		verbose, _ := cmd.Flags().GetInt("verbose")
		tr.Verbose = verbose >= 1
	}
	return reporter.Generate(cmd.Context(), sc, cmd.OutOrStdout())
}

// describe turns API errors into the server's message.
func describe(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s (HTTP %d)", apiErr.Detail, apiErr.StatusCode)
	}
	return err
}

func isJSON(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("format")
	return strings.EqualFold(format, "json")
}
