package scan

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/0x6d61/securescout/internal/model"
)

// startTaskLocked registers a cancellation token for id and launches its
// progress task. start is the progress to continue from.
func (m *Manager) startTaskLocked(id string, start float64) {
	ctx, cancel := context.WithCancel(m.baseCtx)
	m.tasks[id] = cancel
	m.wg.Add(1)
	go m.simulate(ctx, id, start)
}

// invalidateLocked cancels the token of id. Any callback that fires later
// sees a cancelled context under the lock and returns without writing.
func (m *Manager) invalidateLocked(id string) {
	if cancel, ok := m.tasks[id]; ok {
		cancel()
		delete(m.tasks, id)
	}
}

// simulate drives one scan: start delay, pending -> running, then one
// progress step per tick until completion or invalidation.
func (m *Manager) simulate(ctx context.Context, id string, progress float64) {
	defer m.wg.Done()

	timer := time.NewTimer(m.timing.StartDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}

	if !m.markRunning(ctx, id) {
		return
	}

	ticker := time.NewTicker(m.timing.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if done := m.advance(ctx, id, &progress); done {
			return
		}
	}
}

func (m *Manager) markRunning(ctx context.Context, id string) bool {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return false
	}
	s := m.findLocked(id)
	if s == nil || !s.Status.Active() {
		m.invalidateLocked(id)
		m.mu.Unlock()
		return false
	}
	if s.Status == model.StatusRunning {
		m.mu.Unlock()
		return true
	}
	s.Status = model.StatusRunning
	m.saveScansLocked()
	m.notifyLocked(s.Clone())
	m.mu.Unlock()

	m.logger.Debug("scan running", "id", id)
	return true
}

// advance applies one tick. It reports true when the task should stop.
func (m *Manager) advance(ctx context.Context, id string, progress *float64) bool {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return true
	}
	s := m.findLocked(id)
	if s == nil || s.Status != model.StatusRunning {
		m.invalidateLocked(id)
		m.mu.Unlock()
		return true
	}

	*progress += m.rng.Float64() * m.timing.MaxIncrement
	if *progress >= 100 {
		m.completeLocked(s)
		m.invalidateLocked(id)
		found := len(s.Vulnerabilities)
		m.notifyLocked(s.Clone())
		m.mu.Unlock()

		m.logger.Info("scan completed", "id", id, "vulnerabilities", found)
		return true
	}

	p := min(int(math.Round(*progress)), 99)
	if p > s.Progress {
		s.Progress = p
	}
	m.saveScansLocked()
	m.notifyLocked(s.Clone())
	m.mu.Unlock()
	return false
}

func (m *Manager) completeLocked(s *model.Scan) {
	end := m.now().UTC()
	s.Status = model.StatusCompleted
	s.Progress = 100
	s.EndTime = &end
	s.Vulnerabilities = m.generateVulnerabilitiesLocked(s.URL, s.Modules)

	m.results = append(m.results, s.Clone())
	m.saveScansLocked()
	m.saveResultsLocked()
}

// generateVulnerabilitiesLocked draws 0-3 findings per module from the
// configured definition table. Modules without a definition yield nothing.
func (m *Manager) generateVulnerabilitiesLocked(target string, modules []string) []model.Vulnerability {
	vulns := []model.Vulnerability{}
	for _, module := range modules {
		count := m.rng.IntN(4)
		def, ok := m.cfg.VulnerabilityDefinitions[module]
		if !ok {
			continue
		}
		for i := range count {
			pattern := ""
			if len(def.Patterns) > 0 {
				pattern = def.Patterns[m.rng.IntN(len(def.Patterns))]
			}
			vulns = append(vulns, model.Vulnerability{
				Type:        module,
				Severity:    def.Severity,
				Description: def.Description,
				URL:         target,
				TestURL:     fmt.Sprintf("%s?id=%s_test_%d", target, module, i+1),
				Details:     fmt.Sprintf("A possible %s was found during testing. Detected pattern: \"%s\"", def.Description, pattern),
			})
		}
	}
	return vulns
}
