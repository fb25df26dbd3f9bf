// Package model defines the records shared by the scan store, the HTTP API
// and the API client.
package model

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a scan.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Active reports whether the status counts against the concurrency limit.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusRunning
}

// Terminal reports whether the scan can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Severity names used by the vulnerability definitions.
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// Severities lists the severity buckets reported by summaries.
var Severities = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Scan is one user-requested assessment of a URL.
type Scan struct {
	ID              string          `json:"id"`
	URL             string          `json:"url"`
	Modules         []string        `json:"modules"`
	Status          Status          `json:"status"`
	Progress        int             `json:"progress"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Error           *string         `json:"error"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (s Scan) Clone() Scan {
	c := s
	c.Modules = slices.Clone(s.Modules)
	c.Vulnerabilities = slices.Clone(s.Vulnerabilities)
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	return c
}

// Vulnerability is a single (simulated) finding attached to a completed scan.
type Vulnerability struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	URL         string `json:"url"`
	TestURL     string `json:"test_url"`
	Details     string `json:"details"`
}
