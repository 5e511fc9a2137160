package usecase

import (
	"fmt"
	"strings"

	"github.com/barstock/backend/internal/domain"
)

// FormatSummary renders a short human readable report of a run
func FormatSummary(result *domain.ImportResult) string {
	if result == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Import %s (%s): %s", result.ID, result.Source, result.Status)
	if result.DryRun {
		b.WriteString(" [dry run]")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  processed: %d\n", result.Processed)
	fmt.Fprintf(&b, "  updated:   %d\n", result.Updated)
	fmt.Fprintf(&b, "  created:   %d\n", result.Created)
	fmt.Fprintf(&b, "  skipped:   %d\n", result.Skipped)
	fmt.Fprintf(&b, "  errors:    %d\n", result.Errors)

	if result.FailureReason != "" {
		fmt.Fprintf(&b, "  failure:   %s\n", result.FailureReason)
	}

	for _, entry := range result.Logs {
		if entry.Action != domain.ActionError && entry.Action != domain.ActionSkipped {
			continue
		}
		name := entry.OfficialName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "  row %d %s %s: %s\n", entry.RowNumber, entry.Action, name, entry.Message)
	}

	return b.String()
}
