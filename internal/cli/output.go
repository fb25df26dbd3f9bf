package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/0x6d61/securescout/internal/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printScanTable(w io.Writer, scans []model.Scan) {
	if len(scans) == 0 {
		fmt.Fprintln(w, "No scans.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tURL\tSTATUS\tPROGRESS\tFINDINGS\tSTARTED")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%d\t%s\n",
			s.ID, s.URL, s.Status, s.Progress, len(s.Vulnerabilities), s.StartTime.Format(time.DateTime))
	}
	tw.Flush()
}

// printCounts prints a name -> count table sorted by count, then name.
func printCounts(w io.Writer, header string, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tCOUNT\n", header)
	for _, n := range names {
		fmt.Fprintf(tw, "%s\t%d\n", n, counts[n])
	}
	tw.Flush()
}
