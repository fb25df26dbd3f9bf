// Package report renders scan reports and aggregates recent scan history.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/0x6d61/securescout/internal/model"
)

// Reporter renders one scan.
type Reporter interface {
	Format() string
	Generate(ctx context.Context, scan *model.Scan, w io.Writer) error
}

// Formats lists the names accepted by New.
var Formats = []string{"text", "json"}

// New returns the reporter for a case-insensitive format name. Text
// reporters start non-verbose and JSON reporters indented.
func New(format string) (Reporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return &TextReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	}
	return nil, fmt.Errorf("unsupported report format: %q (want one of %s)", format, strings.Join(Formats, ", "))
}
