package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/0x6d61/securescout/internal/model"
	"github.com/0x6d61/securescout/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"active_scans": s.svc.ActiveCount(),
	})
}

// ---- scans ----

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req model.ScanRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		s.writeError(w, invalid("url is required"))
		return
	}

	id, err := s.svc.Create(r.Context(), req.URL, req.Modules)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, model.ScanResponse{
		ScanID:  id,
		URL:     req.URL,
		Status:  model.ResponseStarted,
		Message: "Scan has started",
	})
}

func (s *Server) handleBatchScan(w http.ResponseWriter, r *http.Request) {
	var req model.BatchScanRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, invalid("urls must not be empty"))
		return
	}
	for i, u := range req.URLs {
		req.URLs[i] = strings.TrimSpace(u)
	}
	s.writeJSON(w, http.StatusOK, s.svc.CreateBatch(r.Context(), req.URLs, req.Modules))
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	sc, err := s.svc.Status(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleActiveScans(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Active())
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.List())
}

func (s *Server) handleCancelScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Cancel(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	sc, err := s.svc.Status(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Scan deleted"})
}

func (s *Server) handleClearScans(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Clear(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Scan history cleared"})
}

// ---- reports ----

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Results())
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Result(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecentSummary(w http.ResponseWriter, r *http.Request) {
	days := report.DefaultSummaryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, invalid("days must be a positive integer"))
			return
		}
		days = n
	}
	s.writeJSON(w, http.StatusOK, report.Summarize(s.history(), days, s.now()))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteResult(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Report deleted"})
}

func (s *Server) handleVulnerabilityTypeStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, report.VulnerabilityTypeStats(s.history()))
}

// history is the scan list followed by the results list. Report helpers
// drop the duplicates.
func (s *Server) history() []model.Scan {
	return append(s.svc.List(), s.svc.Results()...)
}

// ---- configuration ----

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Config())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch model.ConfigPatch
	if err := decode(w, r, &patch); err != nil {
		s.writeError(w, err)
		return
	}
	cfg, err := s.svc.SaveConfig(r.Context(), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Library())
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var patch model.RulePatch
	if err := decode(w, r, &patch); err != nil {
		s.writeError(w, err)
		return
	}
	if patch.Severity != nil && !validSeverity(*patch.Severity) {
		s.writeError(w, invalid("severity must be one of %s", strings.Join(model.Severities, ", ")))
		return
	}
	def, err := s.svc.UpdateRule(r.Context(), r.PathValue("type"), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.ResetConfig(r.Context()))
}

func validSeverity(sev string) bool {
	for _, v := range model.Severities {
		if v == sev {
			return true
		}
	}
	return false
}
