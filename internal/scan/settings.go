package scan

import (
	"context"
	"fmt"
	"slices"

	"github.com/0x6d61/securescout/internal/model"
	"github.com/0x6d61/securescout/internal/storage"
)

// Config returns a copy of the current scan configuration.
func (m *Manager) Config() model.ScanConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Clone()
}

// SaveConfig merges patch into the configuration and persists it.
func (m *Manager) SaveConfig(ctx context.Context, patch model.ConfigPatch) (model.ScanConfig, error) {
	if err := validatePatch(patch); err != nil {
		return model.ScanConfig{}, m.fail("Failed to save config", err)
	}

	m.mu.Lock()
	m.lastErr = ""
	m.cfg = patch.Apply(m.cfg)
	m.saveConfigLocked()
	out := m.cfg.Clone()
	m.mu.Unlock()

	m.logger.Info("scan config saved", "concurrent_scans", out.ConcurrentScans, "timeout", out.Timeout)
	return out, nil
}

func validatePatch(p model.ConfigPatch) error {
	if p.ConcurrentScans != nil && *p.ConcurrentScans < 1 {
		return fmt.Errorf("%w: concurrent_scans must be at least 1", ErrInvalidConfig)
	}
	if p.Timeout != nil && *p.Timeout < 1 {
		return fmt.Errorf("%w: timeout must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig re-reads the configuration snapshot. When nothing is stored the
// current configuration is kept.
func (m *Manager) LoadConfig(ctx context.Context) (model.ScanConfig, error) {
	var cfg *model.ScanConfig
	if err := m.read(ctx, storage.KeyScanConfig, &cfg); err != nil {
		return model.ScanConfig{}, m.fail("Failed to load config", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = ""
	if cfg != nil {
		m.cfg = *cfg
	}
	return m.cfg.Clone(), nil
}

// ResetConfig restores the built-in configuration, vulnerability
// definitions included.
func (m *Manager) ResetConfig(ctx context.Context) model.ScanConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = ""
	m.cfg = model.DefaultScanConfig()
	m.saveConfigLocked()
	return m.cfg.Clone()
}

// Library returns the vulnerability definition table.
func (m *Manager) Library() model.Definitions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.VulnerabilityDefinitions.Clone()
}

// UpdateRule patches the definition of one existing vulnerability type.
func (m *Manager) UpdateRule(ctx context.Context, vulnType string, patch model.RulePatch) (model.VulnerabilityDefinition, error) {
	m.mu.Lock()
	m.lastErr = ""
	def, ok := m.cfg.VulnerabilityDefinitions[vulnType]
	if !ok {
		m.mu.Unlock()
		return model.VulnerabilityDefinition{}, m.fail("Failed to update vulnerability rule",
			fmt.Errorf("%w: %q", ErrUnknownRule, vulnType))
	}
	updated := patch.Apply(def)
	m.cfg.VulnerabilityDefinitions[vulnType] = updated
	m.saveConfigLocked()
	m.mu.Unlock()

	updated.Patterns = slices.Clone(updated.Patterns)

	m.logger.Info("vulnerability rule updated", "type", vulnType, "severity", updated.Severity)
	return updated, nil
}
