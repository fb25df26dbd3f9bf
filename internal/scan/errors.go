package scan

import "errors"

// Errors returned by Manager operations. Callers match them with errors.Is;
// the text is what ends up in LastError and in API error bodies.
var (
	ErrNotFound         = errors.New("scan record not found")
	ErrReportNotFound   = errors.New("report not found")
	ErrDuplicateURL     = errors.New("this URL is already in the scan queue")
	ErrConcurrencyLimit = errors.New("maximum concurrent scans reached")
	ErrNotCancellable   = errors.New("only pending or running scans can be cancelled")
	ErrScanInProgress   = errors.New("cannot delete a scan that is in progress")
	ErrInvalidURL       = errors.New("invalid scan URL")
	ErrUnknownRule      = errors.New("vulnerability type does not exist")
	ErrInvalidConfig    = errors.New("invalid scan configuration")
	ErrClosed           = errors.New("scan manager is closed")
)

// IsConflict reports whether err rejects an operation because of the current
// state of the store rather than because of bad input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateURL) ||
		errors.Is(err, ErrConcurrencyLimit) ||
		errors.Is(err, ErrNotCancellable) ||
		errors.Is(err, ErrScanInProgress)
}
