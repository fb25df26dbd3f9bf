package model

import (
	"maps"
	"slices"
)

// VulnerabilityDefinition describes one detection module.
type VulnerabilityDefinition struct {
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Patterns    []string `json:"patterns"`
}

// Definitions maps module names (sql_injection, xss, ...) to their definition.
type Definitions map[string]VulnerabilityDefinition

// Clone returns a deep copy of the table.
func (d Definitions) Clone() Definitions {
	if d == nil {
		return nil
	}
	out := make(Definitions, len(d))
	for k, v := range d {
		v.Patterns = slices.Clone(v.Patterns)
		out[k] = v
	}
	return out
}

// ScanConfig is the process-wide scan configuration.
type ScanConfig struct {
	Timeout                  int         `json:"timeout"`
	ConcurrentScans          int         `json:"concurrent_scans"`
	UserAgent                string      `json:"user_agent"`
	DefaultModules           []string    `json:"default_modules"`
	VulnerabilityDefinitions Definitions `json:"vulnerability_definitions"`
}

// Clone returns a deep copy of the configuration.
func (c ScanConfig) Clone() ScanConfig {
	out := c
	out.DefaultModules = slices.Clone(c.DefaultModules)
	out.VulnerabilityDefinitions = c.VulnerabilityDefinitions.Clone()
	return out
}

// DefaultUserAgent is sent by scans unless configured otherwise.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DefaultScanConfig returns the built-in configuration used when nothing is
// stored yet and after a reset.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Timeout:         60,
		ConcurrentScans: 3,
		UserAgent:       DefaultUserAgent,
		DefaultModules:  []string{"sql_injection", "xss", "csrf"},
		VulnerabilityDefinitions: Definitions{
			"sql_injection": {
				Severity:    SeverityHigh,
				Description: "SQL injection vulnerability allows attackers to inject malicious SQL queries into the application, potentially leading to data leakage or corruption",
				Patterns: []string{
					"SQL syntax", "mysql_fetch_array", "You have an error in your SQL syntax",
					"ORA-", "PostgreSQL", "SQLite3::", "microsoft JET Database",
				},
			},
			"xss": {
				Severity:    SeverityMedium,
				Description: "Cross-site scripting attacks allow attackers to inject and execute malicious scripts in the victim's browser",
				Patterns: []string{
					"<script>alert", "javascript:alert", "onerror=alert", "document.cookie",
					"eval(", "document.domain", "document.write",
				},
			},
			"csrf": {
				Severity:    SeverityMedium,
				Description: "Cross-site request forgery vulnerabilities allow attackers to trick users into performing unintended actions",
				Patterns: []string{
					"no CSRF token", "missing CSRF", "csrf verification failed",
				},
			},
			"file_upload": {
				Severity:    SeverityHigh,
				Description: "Insecure file upload allows attackers to upload malicious files, potentially leading to remote code execution",
				Patterns: []string{
					".php", ".jsp", ".asp", ".exe", ".sh", ".py",
				},
			},
		},
	}
}

// ConfigPatch is a partial update of ScanConfig. Nil fields are left alone.
type ConfigPatch struct {
	Timeout                  *int        `json:"timeout,omitempty"`
	ConcurrentScans          *int        `json:"concurrent_scans,omitempty"`
	UserAgent                *string     `json:"user_agent,omitempty"`
	DefaultModules           []string    `json:"default_modules,omitempty"`
	VulnerabilityDefinitions Definitions `json:"vulnerability_definitions,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ConfigPatch) Empty() bool {
	return p.Timeout == nil && p.ConcurrentScans == nil && p.UserAgent == nil &&
		p.DefaultModules == nil && p.VulnerabilityDefinitions == nil
}

// Apply returns c with the patch merged in. Definitions are merged by key.
func (p ConfigPatch) Apply(c ScanConfig) ScanConfig {
	out := c.Clone()
	if p.Timeout != nil {
		out.Timeout = *p.Timeout
	}
	if p.ConcurrentScans != nil {
		out.ConcurrentScans = *p.ConcurrentScans
	}
	if p.UserAgent != nil {
		out.UserAgent = *p.UserAgent
	}
	if p.DefaultModules != nil {
		out.DefaultModules = slices.Clone(p.DefaultModules)
	}
	if p.VulnerabilityDefinitions != nil {
		if out.VulnerabilityDefinitions == nil {
			out.VulnerabilityDefinitions = make(Definitions, len(p.VulnerabilityDefinitions))
		}
		maps.Copy(out.VulnerabilityDefinitions, p.VulnerabilityDefinitions.Clone())
	}
	return out
}

// RulePatch is a partial update of one VulnerabilityDefinition.
type RulePatch struct {
	Severity    *string  `json:"severity,omitempty"`
	Description *string  `json:"description,omitempty"`
	Patterns    []string `json:"patterns,omitempty"`
}

// Apply returns d with the patch merged in.
func (p RulePatch) Apply(d VulnerabilityDefinition) VulnerabilityDefinition {
	if p.Severity != nil {
		d.Severity = *p.Severity
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Patterns != nil {
		d.Patterns = slices.Clone(p.Patterns)
	} else {
		d.Patterns = slices.Clone(d.Patterns)
	}
	return d
}
