package report

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/0x6d61/securescout/internal/model"
)

// JSONReporter outputs structured JSON.
type JSONReporter struct {
	// Compact outputs single-line JSON when true (no indentation).
	Compact bool
}

// Format returns "json".
func (r *JSONReporter) Format() string {
	return "json"
}

type jsonOutput struct {
	SchemaVersion   string                `json:"schema_version"`
	Tool            string                `json:"tool"`
	Scan            jsonScan              `json:"scan"`
	Vulnerabilities []model.Vulnerability `json:"vulnerabilities"`
	Summary         jsonSummary           `json:"summary"`
}

type jsonScan struct {
	ID              string       `json:"id"`
	URL             string       `json:"url"`
	Modules         []string     `json:"modules"`
	Status          model.Status `json:"status"`
	Progress        int          `json:"progress"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         *time.Time   `json:"end_time"`
	DurationSeconds float64      `json:"duration_seconds"`
	Error           *string      `json:"error,omitempty"`
}

type jsonSummary struct {
	TotalVulnerabilities int            `json:"total_vulnerabilities"`
	BySeverity           map[string]int `json:"by_severity"`
	AffectedModules      int            `json:"affected_modules"`
}

// Generate writes the scan as JSON to w.
func (r *JSONReporter) Generate(ctx context.Context, scan *model.Scan, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	vulns := scan.Vulnerabilities
	if vulns == nil {
		vulns = []model.Vulnerability{}
	}
	output := jsonOutput{
		SchemaVersion: "1.0",
		Tool:          "securescout",
		Scan: jsonScan{
			ID:              scan.ID,
			URL:             scan.URL,
			Modules:         scan.Modules,
			Status:          scan.Status,
			Progress:        scan.Progress,
			StartTime:       scan.StartTime,
			EndTime:         scan.EndTime,
			DurationSeconds: duration(scan).Seconds(),
			Error:           scan.Error,
		},
		Vulnerabilities: vulns,
		Summary: jsonSummary{
			TotalVulnerabilities: len(vulns),
			BySeverity:           severityCounts(vulns),
			AffectedModules:      countAffectedModules(vulns),
		},
	}

	enc := json.NewEncoder(w)
	if !r.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(output)
}
