package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/0x6d61/securescout/internal/model"
)

const (
	doubleLine = "\u2550" // ═
	singleLine = "\u2500" // ─
	lineWidth  = 50
)

// TextReporter outputs plain terminal text.
type TextReporter struct {
	// Verbose adds the test URL and detection details of every finding.
	Verbose bool
}

// Format returns "text".
func (r *TextReporter) Format() string {
	return "text"
}

// Generate writes the formatted scan report to w.
func (r *TextReporter) Generate(ctx context.Context, scan *model.Scan, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := &strings.Builder{}

	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintf(b, "SecureScout Report %s\n", scan.ID)
	fmt.Fprintln(b, doubleBar)

	fmt.Fprintf(b, "Target:   %s\n", scan.URL)
	fmt.Fprintf(b, "Modules:  %s\n", strings.Join(scan.Modules, ", "))
	fmt.Fprintf(b, "Status:   %s (%d%%)\n", scan.Status, scan.Progress)
	fmt.Fprintf(b, "Started:  %s\n", scan.StartTime.Format(time.RFC3339))
	if scan.EndTime != nil {
		fmt.Fprintf(b, "Duration: %.1fs\n", duration(scan).Seconds())
	}
	if scan.Error != nil {
		fmt.Fprintf(b, "Error:    %s\n", *scan.Error)
	}

	if len(scan.Vulnerabilities) == 0 {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintln(b, "No vulnerabilities found.")
	} else {
		for _, v := range scan.Vulnerabilities {
			fmt.Fprintln(b, singleBar)
			fmt.Fprintf(b, "[%s] %s\n", strings.ToUpper(v.Severity), v.Type)
			if v.Description != "" {
				fmt.Fprintf(b, "  %s\n", v.Description)
			}
			if r.Verbose {
				fmt.Fprintf(b, "  Test URL: %s\n", v.TestURL)
				fmt.Fprintf(b, "  Details:  %s\n", v.Details)
			}
		}
	}

	fmt.Fprintln(b, doubleBar)
	counts := severityCounts(scan.Vulnerabilities)
	fmt.Fprintf(b, "Summary: %d vulnerabilities in %d module(s)", len(scan.Vulnerabilities), countAffectedModules(scan.Vulnerabilities))
	if len(scan.Vulnerabilities) > 0 {
		parts := make([]string, 0, len(model.Severities))
		for _, sev := range model.Severities {
			if n := counts[sev]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s %d", sev, n))
			}
		}
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintln(b)
	fmt.Fprintln(b, doubleBar)

	_, err := io.WriteString(w, b.String())
	return err
}

func duration(s *model.Scan) time.Duration {
	if s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// countAffectedModules counts distinct vulnerability types.
func countAffectedModules(vulns []model.Vulnerability) int {
	seen := make(map[string]struct{})
	for _, v := range vulns {
		seen[v.Type] = struct{}{}
	}
	return len(seen)
}

// severityCounts counts findings per known severity. Every known severity is
// present in the result, unknown severities are dropped.
func severityCounts(vulns []model.Vulnerability) map[string]int {
	counts := make(map[string]int, len(model.Severities))
	for _, sev := range model.Severities {
		counts[sev] = 0
	}
	for _, v := range vulns {
		if _, ok := counts[v.Severity]; ok {
			counts[v.Severity]++
		}
	}
	return counts
}
