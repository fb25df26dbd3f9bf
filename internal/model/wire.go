package model

// ScanRequest is the body of POST /api/scan/start.
type ScanRequest struct {
	URL     string   `json:"url"`
	Modules []string `json:"modules,omitempty"`
}

// BatchScanRequest is the body of POST /api/scan/batch.
type BatchScanRequest struct {
	URLs    []string `json:"urls"`
	Modules []string `json:"modules,omitempty"`
}

// Values of ScanResponse.Status.
const (
	ResponseStarted  = "started"
	ResponseRejected = "rejected"
)

// ScanResponse acknowledges one scan submission.
type ScanResponse struct {
	ScanID  string `json:"scan_id"`
	URL     string `json:"url,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Summary aggregates recent scans for the dashboard.
type Summary struct {
	TotalScans           int            `json:"total_scans"`
	Completed            int            `json:"completed"`
	Failed               int            `json:"failed"`
	VulnerabilitySummary map[string]int `json:"vulnerability_summary"`
	SeverityCounts       map[string]int `json:"severity_counts"`
}
