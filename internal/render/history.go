package render

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dyluth/drey/pkg/mirror"
	"github.com/goccy/go-json"
)

// OutputFormat specifies how history and watch output is written.
type OutputFormat string

const (
	// OutputFormatDefault is a human-readable table
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL writes one complete change event per line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates an --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSONL:
		return OutputFormatJSONL, nil
	default:
		return "", fmt.Errorf("invalid output format %q (must be 'default' or 'jsonl')", s)
	}
}

// FormatHistory writes events as a table with columns ID, AGE, REMOVED, ADDED
// and UPDATED. Ages are relative to now. Returns the number of events formatted.
func FormatHistory(w io.Writer, events []*mirror.ChangeEvent, mirrorName string, now time.Time) int {
	if len(events) == 0 {
		fmt.Fprintf(w, "No changes recorded for mirror '%s'\n", mirrorName)
		return 0
	}

	fmt.Fprintf(w, "Changes for mirror '%s':\n\n", mirrorName)
	fmt.Fprintf(w, "%-10s %-16s %7s %7s %7s\n", "ID", "AGE", "REMOVED", "ADDED", "UPDATED")
	fmt.Fprintf(w, "%-10s %-16s %7s %7s %7s\n", "----------", "----------------", "-------", "-------", "-------")

	for _, e := range events {
		fmt.Fprintf(w, "%-10s %-16s %7d %7d %7d\n",
			shortID(e.ID),
			humanize.RelTime(time.UnixMilli(e.AppliedAtMs), now, "ago", "from now"),
			len(e.Removed), len(e.Added), len(e.Updated))
	}

	noun := "change"
	if len(events) != 1 {
		noun = "changes"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(events), noun)
	return len(events)
}

// FormatHistoryJSONL writes each event as a single JSON object on its own line.
func FormatHistoryJSONL(w io.Writer, events []*mirror.ChangeEvent) error {
	for _, e := range events {
		if err := FormatEventJSONL(w, e); err != nil {
			return err
		}
	}
	return nil
}

// FormatEventJSONL writes one event as a single line of JSON.
func FormatEventJSONL(w io.Writer, e *mirror.ChangeEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal change event to JSON: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write JSONL output: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
