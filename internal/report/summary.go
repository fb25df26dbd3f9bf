package report

import (
	"time"

	"github.com/0x6d61/securescout/internal/model"
)

// DefaultSummaryDays is the window of Summarize when the caller gives none.
const DefaultSummaryDays = 7

// Summarize aggregates the finished scans started within the last days days
// before now. scans may hold the same scan twice (from the scan list and the
// results list); the first occurrence of an id wins. Active scans are
// skipped and vulnerabilities are only counted for completed scans.
func Summarize(scans []model.Scan, days int, now time.Time) model.Summary {
	if days <= 0 {
		days = DefaultSummaryDays
	}
	cutoff := now.AddDate(0, 0, -days)

	sum := model.Summary{
		VulnerabilitySummary: map[string]int{},
		SeverityCounts:       severityCounts(nil),
	}
	for _, s := range dedupe(scans) {
		if !s.Status.Terminal() || s.StartTime.Before(cutoff) {
			continue
		}
		sum.TotalScans++
		switch s.Status {
		case model.StatusCompleted:
			sum.Completed++
			for _, v := range s.Vulnerabilities {
				sum.VulnerabilitySummary[v.Type]++
				if _, ok := sum.SeverityCounts[v.Severity]; ok {
					sum.SeverityCounts[v.Severity]++
				}
			}
		case model.StatusFailed:
			sum.Failed++
		}
	}
	return sum
}

// VulnerabilityTypeStats counts findings per vulnerability type across all
// completed scans.
func VulnerabilityTypeStats(scans []model.Scan) map[string]int {
	stats := map[string]int{}
	for _, s := range dedupe(scans) {
		if s.Status != model.StatusCompleted {
			continue
		}
		for _, v := range s.Vulnerabilities {
			stats[v.Type]++
		}
	}
	return stats
}

func dedupe(scans []model.Scan) []model.Scan {
	seen := make(map[string]struct{}, len(scans))
	out := make([]model.Scan, 0, len(scans))
	for _, s := range scans {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}
