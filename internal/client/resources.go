package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/0x6d61/securescout/internal/model"
)

// ScanAPI groups the /api/scan endpoints.
type ScanAPI struct{ c *Client }

// Start submits one scan.
func (a *ScanAPI) Start(ctx context.Context, target string, modules []string) (model.ScanResponse, error) {
	var out model.ScanResponse
	err := a.c.do(ctx, http.MethodPost, "/api/scan/start", nil, model.ScanRequest{URL: target, Modules: modules}, &out)
	return out, err
}

// Batch submits one scan per URL.
func (a *ScanAPI) Batch(ctx context.Context, targets []string, modules []string) ([]model.ScanResponse, error) {
	var out []model.ScanResponse
	err := a.c.do(ctx, http.MethodPost, "/api/scan/batch", nil, model.BatchScanRequest{URLs: targets, Modules: modules}, &out)
	return out, err
}

// Status returns one scan.
func (a *ScanAPI) Status(ctx context.Context, id string) (model.Scan, error) {
	var out model.Scan
	err := a.c.do(ctx, http.MethodGet, "/api/scan/status/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// Active returns the pending and running scans.
func (a *ScanAPI) Active(ctx context.Context) ([]model.Scan, error) {
	var out []model.Scan
	err := a.c.do(ctx, http.MethodGet, "/api/scan/active", nil, nil, &out)
	return out, err
}

// List returns every scan.
func (a *ScanAPI) List(ctx context.Context) ([]model.Scan, error) {
	var out []model.Scan
	err := a.c.do(ctx, http.MethodGet, "/api/scan", nil, nil, &out)
	return out, err
}

// Cancel cancels a pending or running scan and returns it.
func (a *ScanAPI) Cancel(ctx context.Context, id string) (model.Scan, error) {
	var out model.Scan
	err := a.c.do(ctx, http.MethodPost, "/api/scan/"+url.PathEscape(id)+"/cancel", nil, nil, &out)
	return out, err
}

// Delete removes a finished scan.
func (a *ScanAPI) Delete(ctx context.Context, id string) (model.MessageResponse, error) {
	var out model.MessageResponse
	err := a.c.do(ctx, http.MethodDelete, "/api/scan/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// Clear removes every finished scan and every report.
func (a *ScanAPI) Clear(ctx context.Context) (model.MessageResponse, error) {
	var out model.MessageResponse
	err := a.c.do(ctx, http.MethodDelete, "/api/scan", nil, nil, &out)
	return out, err
}

// ReportAPI groups the /api/report endpoints.
type ReportAPI struct{ c *Client }

// List returns every report.
func (a *ReportAPI) List(ctx context.Context) ([]model.Scan, error) {
	var out []model.Scan
	err := a.c.do(ctx, http.MethodGet, "/api/report", nil, nil, &out)
	return out, err
}

// Get returns one report.
func (a *ReportAPI) Get(ctx context.Context, id string) (model.Scan, error) {
	var out model.Scan
	err := a.c.do(ctx, http.MethodGet, "/api/report/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// Summary aggregates the scans of the last days days.
func (a *ReportAPI) Summary(ctx context.Context, days int) (model.Summary, error) {
	var out model.Summary
	q := url.Values{"days": {strconv.Itoa(days)}}
	err := a.c.do(ctx, http.MethodGet, "/api/report/summary/recent", q, nil, &out)
	return out, err
}

// Delete removes one report.
func (a *ReportAPI) Delete(ctx context.Context, id string) (model.MessageResponse, error) {
	var out model.MessageResponse
	err := a.c.do(ctx, http.MethodDelete, "/api/report/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// VulnerabilityTypeStats returns finding counts per vulnerability type.
func (a *ReportAPI) VulnerabilityTypeStats(ctx context.Context) (map[string]int, error) {
	var out map[string]int
	err := a.c.do(ctx, http.MethodGet, "/api/report/stats/vulnerability_types", nil, nil, &out)
	return out, err
}

// ConfigAPI groups the /api/config endpoints.
type ConfigAPI struct{ c *Client }

// Get returns the scan configuration.
func (a *ConfigAPI) Get(ctx context.Context) (model.ScanConfig, error) {
	var out model.ScanConfig
	err := a.c.do(ctx, http.MethodGet, "/api/config", nil, nil, &out)
	return out, err
}

// Update applies a partial update and returns the new configuration.
func (a *ConfigAPI) Update(ctx context.Context, patch model.ConfigPatch) (model.ScanConfig, error) {
	var out model.ScanConfig
	err := a.c.do(ctx, http.MethodPatch, "/api/config", nil, patch, &out)
	return out, err
}

// Library returns the vulnerability definition table.
func (a *ConfigAPI) Library(ctx context.Context) (model.Definitions, error) {
	var out model.Definitions
	err := a.c.do(ctx, http.MethodGet, "/api/config/vulnerabilities", nil, nil, &out)
	return out, err
}

// UpdateRule patches one vulnerability definition and returns it.
func (a *ConfigAPI) UpdateRule(ctx context.Context, vulnType string, patch model.RulePatch) (model.VulnerabilityDefinition, error) {
	var out model.VulnerabilityDefinition
	err := a.c.do(ctx, http.MethodPatch, "/api/config/vulnerabilities/"+url.PathEscape(vulnType), nil, patch, &out)
	return out, err
}

// Reset restores the built-in configuration.
func (a *ConfigAPI) Reset(ctx context.Context) (model.ScanConfig, error) {
	var out model.ScanConfig
	err := a.c.do(ctx, http.MethodPost, "/api/config/reset", nil, nil, &out)
	return out, err
}
