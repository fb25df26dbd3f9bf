package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/securescout/internal/storage"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect the server's snapshot store directly",
	Long: `Snapshots reads the snapshot store configured for the server without
going through the API. Stop the server before deleting snapshots; a running
server rewrites them on its next change.`,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsList,
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print one snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsShow,
}

var snapshotsDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete one snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotsDelete,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsShowCmd, snapshotsDeleteCmd)
	for _, c := range []*cobra.Command{snapshotsListCmd, snapshotsShowCmd, snapshotsDeleteCmd} {
		addStorageFlags(c)
	}
}

func openConfiguredStore(cmd *cobra.Command) (storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg, err = applyStorageFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return openStore(cmd.Context(), cfg)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if isJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tUPDATED")
	for _, e := range entries {
		updated := "-"
		if !e.UpdatedAt.IsZero() {
			updated = e.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Key, e.Size, updated)
	}
	return tw.Flush()
}

func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := store.Get(cmd.Context(), args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no snapshot stored under %q", args[0])
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func runSnapshotsDelete(cmd *cobra.Command, args []string) error {
	store, err := openConfiguredStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[+] Deleted snapshot %s\n", args[0])
	return nil
}
