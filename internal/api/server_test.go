package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/0x6d61/securescout/internal/model"
	"github.com/0x6d61/securescout/internal/scan"
	"github.com/0x6d61/securescout/internal/storage"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var testNow = time.Date(2023, 10, 22, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, timing scan.Timing) *scan.Manager {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m, err := scan.New(context.Background(), store,
		scan.WithLogger(discardLogger()),
		scan.WithClock(func() time.Time { return testNow }),
		scan.WithRand(rand.New(rand.NewPCG(7, 7))),
		scan.WithTiming(timing),
	)
	if err != nil {
		t.Fatalf("scan.New: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

var idleTiming = scan.Timing{StartDelay: time.Hour, TickInterval: time.Hour, MaxIncrement: 15}

func newTestServer(t *testing.T) (*httptest.Server, *scan.Manager) {
	t.Helper()
	m := newTestManager(t, idleTiming)
	srv := httptest.NewServer(New(m, WithLogger(discardLogger()), WithClock(func() time.Time { return testNow })))
	t.Cleanup(srv.Close)
	return srv, m
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			r = strings.NewReader(s)
		} else {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			r = bytes.NewReader(b)
		}
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status = %d, want %d (body %s)",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func expectDetail(t *testing.T, resp *http.Response, status int, contains string) {
	t.Helper()
	expectStatus(t, resp, status)
	er := decodeBody[model.ErrorResponse](t, resp)
	if !strings.Contains(er.Detail, contains) {
		t.Errorf("detail = %q, want it to contain %q", er.Detail, contains)
	}
}

// ---------------------------------------------------------------------------
// Scans
// ---------------------------------------------------------------------------

func TestStartScan(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, "POST", srv.URL+"/api/scan/start", model.ScanRequest{URL: "https://example.com", Modules: []string{"xss"}})
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	got := decodeBody[model.ScanResponse](t, resp)
	if got.ScanID != "SCN-231022-001" || got.Status != model.ResponseStarted || got.URL != "https://example.com" {
		t.Errorf("response = %+v", got)
	}

	status := doJSON(t, "GET", srv.URL+"/api/scan/status/"+got.ScanID, nil)
	expectStatus(t, status, http.StatusOK)
	sc := decodeBody[model.Scan](t, status)
	if sc.Status != model.StatusPending || sc.Modules[0] != "xss" {
		t.Errorf("scan = %+v", sc)
	}
}

func TestStartScan_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	expectStatus(t, doJSON(t, "POST", srv.URL+"/api/scan/start", model.ScanRequest{URL: "https://example.com"}), http.StatusOK)

	tests := []struct {
		name   string
		body   any
		status int
		detail string
	}{
		{"duplicate", model.ScanRequest{URL: "https://example.com"}, http.StatusConflict, "already in the scan queue"},
		{"missing url", model.ScanRequest{}, http.StatusUnprocessableEntity, "url is required"},
		{"bad url", model.ScanRequest{URL: "example.com"}, http.StatusUnprocessableEntity, "invalid scan URL"},
		{"bad json", `{"url":`, http.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectDetail(t, doJSON(t, "POST", srv.URL+"/api/scan/start", tt.body), tt.status, tt.detail)
		})
	}
}

func TestStartScan_ConcurrencyLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		expectStatus(t, doJSON(t, "POST", srv.URL+"/api/scan/start", model.ScanRequest{URL: u}), http.StatusOK)
	}
	expectDetail(t, doJSON(t, "POST", srv.URL+"/api/scan/start", model.ScanRequest{URL: "https://d.example"}),
		http.StatusConflict, "maximum concurrent scans reached (3)")
}

func TestBatchScan(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, "POST", srv.URL+"/api/scan/batch", model.BatchScanRequest{
		URLs: []string{"https://a.example", " https://a.example ", "https://b.example"},
	})
	expectStatus(t, resp, http.StatusOK)
	got := decodeBody[[]model.ScanResponse](t, resp)
	if len(got) != 3 {
		t.Fatalf("got %d responses, want 3", len(got))
	}
	if got[0].Status != model.ResponseStarted || got[1].Status != model.ResponseRejected || got[2].Status != model.ResponseStarted {
		t.Errorf("statuses = %s, %s, %s", got[0].Status, got[1].Status, got[2].Status)
	}

	expectDetail(t, doJSON(t, "POST", srv.URL+"/api/scan/batch", model.BatchScanRequest{}), http.StatusUnprocessableEntity, "urls")
}

func TestScanStatus_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	expectDetail(t, doJSON(t, "GET", srv.URL+"/api/scan/status/SCN-000000-001", nil), http.StatusNotFound, "scan record not found")
}

func TestActiveAndListScans(t *testing.T) {
	srv, m := newTestServer(t)

	resp := doJSON(t, "GET", srv.URL+"/api/scan/active", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decodeBody[[]model.Scan](t, resp); got == nil || len(got) != 0 {
		t.Errorf("active on empty store = %v, want []", got)
	}

	m.SeedDemo(context.Background())
	doJSON(t, "POST", srv.URL+"/api/scan/start", model.ScanRequest{URL: "https://example.com"})

	active := decodeBody[[]model.Scan](t, doJSON(t, "GET", srv.URL+"/api/scan/active", nil))
	if len(active) != 1 || active[0].URL != "https://example.com" {
		t.Errorf("active = %+v", active)
	}
	all := decodeBody[[]model.Scan](t, doJSON(t, "GET", srv.URL+"/api/scan", nil))
	if len(all) != 7 {
		t.Errorf("list has %d scans, want 7", len(all))
	}
}

func TestCancelAndDeleteScan(t *testing.T) {
	srv, _ := newTestServer(t)

	started := decodeBody[model.ScanResponse](t,
		doJSON(t, "POST", srv.URL+"/api/scan/start", model.ScanRequest{URL: "https://example.com"}))

	expectDetail(t, doJSON(t, "DELETE", srv.URL+"/api/scan/"+started.ScanID, nil), http.StatusConflict, "in progress")

	resp := doJSON(t, "POST", srv.URL+"/api/scan/"+started.ScanID+"/cancel", nil)
	expectStatus(t, resp, http.StatusOK)
	sc := decodeBody[model.Scan](t, resp)
	if sc.Status != model.StatusCancelled || sc.EndTime == nil {
		t.Errorf("cancelled scan = %+v", sc)
	}

	expectDetail(t, doJSON(t, "POST", srv.URL+"/api/scan/"+started.ScanID+"/cancel", nil), http.StatusConflict, "only pending or running")
	expectDetail(t, doJSON(t, "POST", srv.URL+"/api/scan/SCN-000000-009/cancel", nil), http.StatusNotFound, "not found")

	expectStatus(t, doJSON(t, "DELETE", srv.URL+"/api/scan/"+started.ScanID, nil), http.StatusOK)
	expectStatus(t, doJSON(t, "GET", srv.URL+"/api/scan/status/"+started.ScanID, nil), http.StatusNotFound)
}

func TestClearScans(t *testing.T) {
	srv, m := newTestServer(t)
	m.SeedDemo(context.Background())

	resp := doJSON(t, "DELETE", srv.URL+"/api/scan", nil)
	expectStatus(t, resp, http.StatusOK)
	if msg := decodeBody[model.MessageResponse](t, resp); msg.Message == "" {
		t.Error("empty confirmation message")
	}
	if n := len(m.List()); n != 0 {
		t.Errorf("%d scans left after clear", n)
	}
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

func newCompletedServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	m := newTestManager(t, scan.Timing{StartDelay: time.Millisecond, TickInterval: time.Millisecond, MaxIncrement: 15})
	srv := httptest.NewServer(New(m, WithLogger(discardLogger()), WithClock(func() time.Time { return testNow })))
	t.Cleanup(srv.Close)

	id, err := m.Create(context.Background(), "https://example.com", []string{"sql_injection", "xss", "csrf", "file_upload"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(m.Results()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scan did not complete")
		}
		time.Sleep(2 * time.Millisecond)
	}
	return srv, id
}

func TestReports(t *testing.T) {
	srv, id := newCompletedServer(t)

	list := decodeBody[[]model.Scan](t, doJSON(t, "GET", srv.URL+"/api/report", nil))
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("reports = %+v", list)
	}

	resp := doJSON(t, "GET", srv.URL+"/api/report/"+id, nil)
	expectStatus(t, resp, http.StatusOK)
	rep := decodeBody[model.Scan](t, resp)
	if rep.Status != model.StatusCompleted || rep.Progress != 100 {
		t.Errorf("report = %+v", rep)
	}

	stats := decodeBody[map[string]int](t, doJSON(t, "GET", srv.URL+"/api/report/stats/vulnerability_types", nil))
	total := 0
	for _, n := range stats {
		total += n
	}
	if total != len(rep.Vulnerabilities) {
		t.Errorf("stats total = %d, want %d", total, len(rep.Vulnerabilities))
	}

	sum := decodeBody[model.Summary](t, doJSON(t, "GET", srv.URL+"/api/report/summary/recent?days=7", nil))
	if sum.TotalScans != 1 || sum.Completed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.SeverityCounts) != 4 {
		t.Errorf("severity_counts = %v", sum.SeverityCounts)
	}

	expectStatus(t, doJSON(t, "DELETE", srv.URL+"/api/report/"+id, nil), http.StatusOK)
	expectDetail(t, doJSON(t, "GET", srv.URL+"/api/report/"+id, nil), http.StatusNotFound, "report not found")
	expectDetail(t, doJSON(t, "DELETE", srv.URL+"/api/report/"+id, nil), http.StatusNotFound, "report not found")
}

func TestRecentSummary_Days(t *testing.T) {
	srv, m := newTestServer(t)
	m.SeedDemo(context.Background()) // demo scans run 2023-09-20 .. 2023-10-20

	tests := []struct {
		query string
		total int
	}{
		{"", 1},         // default window: 2023-10-20 only
		{"?days=20", 3}, // 10-20, 10-10, 10-05
		{"?days=60", 6},
	}
	for _, tt := range tests {
		sum := decodeBody[model.Summary](t, doJSON(t, "GET", srv.URL+"/api/report/summary/recent"+tt.query, nil))
		if sum.TotalScans != tt.total {
			t.Errorf("summary%s total = %d, want %d", tt.query, sum.TotalScans, tt.total)
		}
	}

	for _, q := range []string{"?days=0", "?days=-3", "?days=week"} {
		expectStatus(t, doJSON(t, "GET", srv.URL+"/api/report/summary/recent"+q, nil), http.StatusUnprocessableEntity)
	}
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

func TestConfigEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	cfg := decodeBody[model.ScanConfig](t, doJSON(t, "GET", srv.URL+"/api/config", nil))
	if cfg.ConcurrentScans != 3 || cfg.Timeout != 60 {
		t.Errorf("config = %+v", cfg)
	}

	resp := doJSON(t, "PATCH", srv.URL+"/api/config", `{"concurrent_scans": 5}`)
	expectStatus(t, resp, http.StatusOK)
	if cfg := decodeBody[model.ScanConfig](t, resp); cfg.ConcurrentScans != 5 || cfg.Timeout != 60 {
		t.Errorf("patched config = %+v", cfg)
	}

	expectDetail(t, doJSON(t, "PATCH", srv.URL+"/api/config", `{"concurrent_scans": 0}`), http.StatusUnprocessableEntity, "concurrent_scans")

	lib := decodeBody[model.Definitions](t, doJSON(t, "GET", srv.URL+"/api/config/vulnerabilities", nil))
	if len(lib) != 4 {
		t.Errorf("library has %d entries, want 4", len(lib))
	}

	resp = doJSON(t, "PATCH", srv.URL+"/api/config/vulnerabilities/xss", `{"severity": "High"}`)
	expectStatus(t, resp, http.StatusOK)
	if def := decodeBody[model.VulnerabilityDefinition](t, resp); def.Severity != "High" || len(def.Patterns) == 0 {
		t.Errorf("rule = %+v", def)
	}
	expectDetail(t, doJSON(t, "PATCH", srv.URL+"/api/config/vulnerabilities/nosuch", `{"severity": "High"}`), http.StatusNotFound, "does not exist")
	expectStatus(t, doJSON(t, "PATCH", srv.URL+"/api/config/vulnerabilities/xss", `{"severity": "Extreme"}`), http.StatusUnprocessableEntity)

	resp = doJSON(t, "POST", srv.URL+"/api/config/reset", nil)
	expectStatus(t, resp, http.StatusOK)
	cfg = decodeBody[model.ScanConfig](t, resp)
	if cfg.ConcurrentScans != 3 || cfg.VulnerabilityDefinitions["xss"].Severity != model.SeverityMedium {
		t.Errorf("reset config = %+v", cfg)
	}
}

// ---------------------------------------------------------------------------
// Middleware and routing
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, "GET", srv.URL+"/health", nil)
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("response has no request id")
	}

	req, _ := http.NewRequest("GET", srv.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get(RequestIDHeader); got != "trace-123" {
		t.Errorf("request id = %q, want trace-123", got)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	m := newTestManager(t, idleTiming)
	h := New(m, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/scan/status/SCN-1", nil))

	out := buf.String()
	for _, want := range []string{"http request", "method=GET", "path=/api/scan/status/SCN-1", "status=404", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("access log missing %q: %s", want, out)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, "PUT", srv.URL+"/api/config", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("PUT /api/config status = %d, want 405", resp.StatusCode)
	}
}

type panicService struct{ Service }

func (panicService) ActiveCount() int { panic("boom") }

func TestRecoverPanic(t *testing.T) {
	h := New(panicService{}, WithLogger(discardLogger()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	m := newTestManager(t, idleTiming)
	s := New(m, WithLogger(discardLogger()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, time.Second) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
