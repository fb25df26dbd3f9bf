package scan

import (
	"context"
	"time"

	"github.com/0x6d61/securescout/internal/model"
)

// SeedDemo installs a fixed history of finished scans when the scan list is
// empty, so a fresh dashboard has something to show. It reports whether
// anything was installed.
func (m *Manager) SeedDemo(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.scans) > 0 {
		return false
	}
	for _, s := range demoScans() {
		m.scans = append(m.scans, &s)
		m.ids.observe(s.ID)
	}
	m.saveScansLocked()
	m.logger.Info("seeded demo scans", "count", len(m.scans))
	return true
}

func demoScans() []model.Scan {
	at := func(v string) time.Time {
		t, _ := time.Parse(time.RFC3339, v)
		return t
	}
	end := func(v string) *time.Time {
		t := at(v)
		return &t
	}
	msg := func(v string) *string { return &v }
	vuln := func(typ, sev string) model.Vulnerability {
		return model.Vulnerability{Type: typ, Severity: sev}
	}

	return []model.Scan{
		{
			ID: "SCN-20231020-001", URL: "https://secure-demo.org", Status: model.StatusCompleted, Progress: 100,
			StartTime: at("2023-10-20T22:15:00Z"), EndTime: end("2023-10-20T22:18:30Z"),
			Vulnerabilities: []model.Vulnerability{},
		},
		{
			ID: "SCN-20231010-003", URL: "https://test-site.com", Status: model.StatusFailed,
			StartTime: at("2023-10-10T14:20:00Z"), EndTime: end("2023-10-10T14:22:15Z"),
			Error: msg("Connection timed out"),
		},
		{
			ID: "SCN-20231005-004", URL: "https://blog.example.org", Status: model.StatusCompleted, Progress: 100,
			StartTime: at("2023-10-05T09:30:00Z"), EndTime: end("2023-10-05T09:38:22Z"),
			Vulnerabilities: []model.Vulnerability{
				vuln("CSRF", model.SeverityMedium),
				vuln("Configuration error", model.SeverityLow),
			},
		},
		{
			ID: "SCN-20231001-005", URL: "https://shop.example.com", Status: model.StatusCompleted, Progress: 100,
			StartTime: at("2023-10-01T11:45:00Z"), EndTime: end("2023-10-01T11:52:10Z"),
			Vulnerabilities: []model.Vulnerability{
				vuln("XSS", model.SeverityMedium),
				vuln("File inclusion", model.SeverityHigh),
				vuln("Directory traversal", model.SeverityHigh),
				vuln("Sensitive information disclosure", model.SeverityMedium),
			},
		},
		{
			ID: "SCN-20230925-006", URL: "https://api.test.com", Status: model.StatusCompleted, Progress: 100,
			StartTime: at("2023-09-25T15:20:00Z"), EndTime: end("2023-09-25T15:23:45Z"),
			Vulnerabilities: []model.Vulnerability{},
		},
		{
			ID: "SCN-20230920-007", URL: "https://admin.example.org", Status: model.StatusFailed,
			StartTime: at("2023-09-20T08:10:00Z"), EndTime: end("2023-09-20T08:15:32Z"),
			Error: msg("Authentication failed"),
		},
	}
}
