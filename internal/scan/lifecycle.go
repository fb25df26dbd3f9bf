package scan

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/0x6d61/securescout/internal/model"
)

// Create queues a scan of rawURL with the given modules (the configured
// default modules when empty) and returns its id. The scan starts pending and
// is driven to completion by a background task.
func (m *Manager) Create(ctx context.Context, rawURL string, modules []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", m.fail("Failed to create scan", err)
	}

	m.mu.Lock()
	m.lastErr = ""
	s, err := m.createLocked(rawURL, modules)
	m.mu.Unlock()
	if err != nil {
		return "", m.fail("Failed to create scan", err)
	}

	m.logger.Info("scan created", "id", s.ID, "url", s.URL, "modules", s.Modules)
	return s.ID, nil
}

func (m *Manager) createLocked(rawURL string, modules []string) (model.Scan, error) {
	if m.closed {
		return model.Scan{}, ErrClosed
	}
	if err := validateURL(rawURL); err != nil {
		return model.Scan{}, err
	}
	for _, s := range m.scans {
		if s.URL == rawURL && s.Status.Active() {
			return model.Scan{}, ErrDuplicateURL
		}
	}
	if limit := m.cfg.ConcurrentScans; m.activeCountLocked() >= limit {
		return model.Scan{}, fmt.Errorf("%w (%d)", ErrConcurrencyLimit, limit)
	}

	if len(modules) == 0 {
		modules = m.cfg.DefaultModules
	}
	now := m.now()
	s := &model.Scan{
		ID:              m.ids.next(now),
		URL:             rawURL,
		Modules:         slices.Clone(modules),
		Status:          model.StatusPending,
		Progress:        0,
		StartTime:       now.UTC(),
		Vulnerabilities: []model.Vulnerability{},
	}
	m.scans = append(m.scans, s)
	m.saveScansLocked()
	m.startTaskLocked(s.ID, 0)
	c := s.Clone()
	m.notifyLocked(c)
	return c, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidURL, rawURL)
	}
	return nil
}

// CreateBatch submits every URL independently. A rejected URL does not stop
// the others; its response carries the rejection message.
func (m *Manager) CreateBatch(ctx context.Context, urls []string, modules []string) []model.ScanResponse {
	responses := make([]model.ScanResponse, 0, len(urls))
	for _, u := range urls {
		id, err := m.Create(ctx, u, modules)
		if err != nil {
			responses = append(responses, model.ScanResponse{
				URL:     u,
				Status:  model.ResponseRejected,
				Message: err.Error(),
			})
			continue
		}
		responses = append(responses, model.ScanResponse{
			ScanID:  id,
			URL:     u,
			Status:  model.ResponseStarted,
			Message: "Scan has started",
		})
	}
	return responses
}

// Status returns the scan from the scan list, falling back to the results
// list.
func (m *Manager) Status(id string) (model.Scan, error) {
	m.mu.Lock()
	m.lastErr = ""
	if s := m.findLocked(id); s != nil {
		c := s.Clone()
		m.mu.Unlock()
		return c, nil
	}
	if i := m.resultIndexLocked(id); i >= 0 {
		c := m.results[i].Clone()
		m.mu.Unlock()
		return c, nil
	}
	m.mu.Unlock()
	return model.Scan{}, m.fail("Failed to get scan status", fmt.Errorf("%w: %s", ErrNotFound, id))
}

// List returns every scan in creation order.
func (m *Manager) List() []model.Scan {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Scan, 0, len(m.scans))
	for _, s := range m.scans {
		out = append(out, s.Clone())
	}
	return out
}

// Active returns the pending and running scans.
func (m *Manager) Active() []model.Scan {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Scan{}
	for _, s := range m.scans {
		if s.Status.Active() {
			out = append(out, s.Clone())
		}
	}
	return out
}

// ActiveCount returns the number of pending and running scans.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeCountLocked()
}

func (m *Manager) activeCountLocked() int {
	n := 0
	for _, s := range m.scans {
		if s.Status.Active() {
			n++
		}
	}
	return n
}

// Results returns the completed-scan snapshots.
func (m *Manager) Results() []model.Scan {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Scan, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r.Clone())
	}
	return out
}

// Result returns one completed-scan snapshot.
func (m *Manager) Result(id string) (model.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.resultIndexLocked(id)
	if i < 0 {
		return model.Scan{}, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return m.results[i].Clone(), nil
}

// Cancel moves a pending or running scan to cancelled and invalidates its
// progress task.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	m.lastErr = ""
	s := m.findLocked(id)
	if s == nil {
		m.mu.Unlock()
		return m.fail("Failed to cancel scan", fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	if !s.Status.Active() {
		m.mu.Unlock()
		return m.fail("Failed to cancel scan", ErrNotCancellable)
	}

	m.invalidateLocked(id)
	end := m.now().UTC()
	s.Status = model.StatusCancelled
	s.EndTime = &end
	m.saveScansLocked()
	m.notifyLocked(s.Clone())
	m.mu.Unlock()

	m.logger.Info("scan cancelled", "id", id)
	return nil
}

// Delete removes a finished scan from the scan list and from the results
// list. Deleting an unknown id is a no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.lastErr = ""
	idx := slices.IndexFunc(m.scans, func(s *model.Scan) bool { return s.ID == id })
	if idx < 0 {
		m.mu.Unlock()
		return nil
	}
	if m.scans[idx].Status.Active() {
		m.mu.Unlock()
		return m.fail("Failed to delete scan", ErrScanInProgress)
	}

	m.invalidateLocked(id)
	m.scans = slices.Delete(m.scans, idx, idx+1)
	m.saveScansLocked()
	if i := m.resultIndexLocked(id); i >= 0 {
		m.results = slices.Delete(m.results, i, i+1)
		m.saveResultsLocked()
	}
	m.mu.Unlock()

	m.logger.Info("scan deleted", "id", id)
	return nil
}

// Clear drops every finished scan and every result. Active scans are kept.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = ""
	m.scans = slices.DeleteFunc(m.scans, func(s *model.Scan) bool { return !s.Status.Active() })
	m.saveScansLocked()
	m.results = nil
	m.saveResultsLocked()
	return nil
}

// DeleteResult removes a report from the results list only.
func (m *Manager) DeleteResult(ctx context.Context, id string) error {
	m.mu.Lock()
	m.lastErr = ""
	i := m.resultIndexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return m.fail("Failed to delete report", fmt.Errorf("%w: %s", ErrReportNotFound, id))
	}
	m.results = slices.Delete(m.results, i, i+1)
	m.saveResultsLocked()
	m.mu.Unlock()
	return nil
}

func (m *Manager) findLocked(id string) *model.Scan {
	for _, s := range m.scans {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *Manager) resultIndexLocked(id string) int {
	return slices.IndexFunc(m.results, func(r model.Scan) bool { return r.ID == id })
}
