package render

import (
	"fmt"
	"io"

	"github.com/dyluth/drey/pkg/mirror"
	"github.com/goccy/go-json"
)

// FormatInstanceJSON writes a single instance record as pretty-printed JSON.
func FormatInstanceJSON(w io.Writer, record *mirror.InstanceRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal instance to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}
