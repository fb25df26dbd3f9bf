package scan

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/0x6d61/securescout/internal/model"
	"github.com/0x6d61/securescout/internal/storage"
)

func TestSaveConfig_MergesAndPersists(t *testing.T) {
	store := newTestStore(t)
	m := newTestManager(t, store)
	ctx := context.Background()

	timeout := 120
	cfg, err := m.SaveConfig(ctx, model.ConfigPatch{Timeout: &timeout, DefaultModules: []string{"xss"}})
	if err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if cfg.Timeout != 120 {
		t.Errorf("Timeout = %d, want 120", cfg.Timeout)
	}
	if cfg.ConcurrentScans != 3 {
		t.Errorf("ConcurrentScans changed to %d", cfg.ConcurrentScans)
	}

	raw, err := store.Get(ctx, storage.KeyScanConfig)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var stored model.ScanConfig
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.Timeout != 120 || len(stored.DefaultModules) != 1 {
		t.Errorf("stored config = %+v", stored)
	}
}

func TestSaveConfig_Validation(t *testing.T) {
	m := newTestManager(t, newTestStore(t))
	zero := 0

	tests := []struct {
		name  string
		patch model.ConfigPatch
	}{
		{"zero concurrency", model.ConfigPatch{ConcurrentScans: &zero}},
		{"zero timeout", model.ConfigPatch{Timeout: &zero}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.SaveConfig(context.Background(), tt.patch); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("SaveConfig error = %v, want ErrInvalidConfig", err)
			}
		})
	}
	if m.Config().ConcurrentScans != 3 {
		t.Error("rejected patch was applied")
	}
}

func TestLoadConfig(t *testing.T) {
	store := newTestStore(t)
	m := newTestManager(t, store)
	ctx := context.Background()

	cfg := model.DefaultScanConfig()
	cfg.UserAgent = "from-another-process"
	b, _ := json.Marshal(cfg)
	if err := store.Put(ctx, storage.KeyScanConfig, b); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := m.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.UserAgent != "from-another-process" {
		t.Errorf("UserAgent = %q", got.UserAgent)
	}
}

func TestResetConfig(t *testing.T) {
	m := newTestManager(t, newTestStore(t))
	ctx := context.Background()

	limit := 9
	if _, err := m.SaveConfig(ctx, model.ConfigPatch{ConcurrentScans: &limit}); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	sev := model.SeverityCritical
	if _, err := m.UpdateRule(ctx, "xss", model.RulePatch{Severity: &sev}); err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}

	cfg := m.ResetConfig(ctx)
	if cfg.ConcurrentScans != 3 {
		t.Errorf("ConcurrentScans after reset = %d, want 3", cfg.ConcurrentScans)
	}
	if cfg.VulnerabilityDefinitions["xss"].Severity != model.SeverityMedium {
		t.Errorf("xss severity after reset = %q", cfg.VulnerabilityDefinitions["xss"].Severity)
	}
}

func TestUpdateRule(t *testing.T) {
	m := newTestManager(t, newTestStore(t))
	ctx := context.Background()

	sev := model.SeverityLow
	def, err := m.UpdateRule(ctx, "csrf", model.RulePatch{Severity: &sev, Patterns: []string{"token missing"}})
	if err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	if def.Severity != model.SeverityLow || len(def.Patterns) != 1 {
		t.Errorf("returned definition = %+v", def)
	}
	if got := m.Library()["csrf"]; got.Severity != model.SeverityLow {
		t.Errorf("library csrf severity = %q", got.Severity)
	}

	// Mutating the returned value never leaks into the store.
	def.Patterns[0] = "mutated"
	if got := m.Library()["csrf"].Patterns[0]; got != "token missing" {
		t.Errorf("library pattern = %q after caller mutation", got)
	}

	if _, err := m.UpdateRule(ctx, "nosuch", model.RulePatch{Severity: &sev}); !errors.Is(err, ErrUnknownRule) {
		t.Errorf("UpdateRule(unknown) error = %v, want ErrUnknownRule", err)
	}
}
