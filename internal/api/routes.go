package api

import "net/http"

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	// Scans
	mux.HandleFunc("POST /api/scan/start", s.handleStartScan)
	mux.HandleFunc("POST /api/scan/batch", s.handleBatchScan)
	mux.HandleFunc("GET /api/scan/status/{id}", s.handleScanStatus)
	mux.HandleFunc("GET /api/scan/active", s.handleActiveScans)
	mux.HandleFunc("GET /api/scan", s.handleListScans)
	mux.HandleFunc("POST /api/scan/{id}/cancel", s.handleCancelScan)
	mux.HandleFunc("DELETE /api/scan/{id}", s.handleDeleteScan)
	mux.HandleFunc("DELETE /api/scan", s.handleClearScans)

	// Reports
	mux.HandleFunc("GET /api/report", s.handleListReports)
	mux.HandleFunc("GET /api/report/{id}", s.handleGetReport)
	mux.HandleFunc("GET /api/report/summary/recent", s.handleRecentSummary)
	mux.HandleFunc("DELETE /api/report/{id}", s.handleDeleteReport)
	mux.HandleFunc("GET /api/report/stats/vulnerability_types", s.handleVulnerabilityTypeStats)

	// Configuration
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("PATCH /api/config", s.handleUpdateConfig)
	mux.HandleFunc("GET /api/config/vulnerabilities", s.handleGetLibrary)
	mux.HandleFunc("PATCH /api/config/vulnerabilities/{type}", s.handleUpdateRule)
	mux.HandleFunc("POST /api/config/reset", s.handleResetConfig)
}
