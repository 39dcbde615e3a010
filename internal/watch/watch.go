// Package watch follows a mirror's change stream and waits for instances to
// appear in it.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/drey/internal/render"
	"github.com/dyluth/drey/pkg/mirror"
)

// pollInterval is how often PollForInstance re-reads the mirror.
const pollInterval = 200 * time.Millisecond

// PollForInstance polls the mirror until instanceID is stored.
// Returns the stored record or an error if timeout occurs.
func PollForInstance(ctx context.Context, client *mirror.Client, instanceID string, timeout time.Duration) (*mirror.InstanceRecord, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for instance %s after %v", instanceID, timeout)

		case <-ticker.C:
			record, err := client.GetInstance(ctx, instanceID)
			if err != nil {
				if mirror.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query for instance: %w", err)
			}
			return record, nil
		}
	}
}

// eventFormatter writes one change event in a particular output format.
type eventFormatter interface {
	FormatChange(event *mirror.ChangeEvent) error
	FormatError(err error) error
}

func newFormatter(format render.OutputFormat, w io.Writer) eventFormatter {
	if format == render.OutputFormatJSONL {
		return &jsonFormatter{writer: w}
	}
	return &defaultFormatter{writer: w}
}

type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatChange(event *mirror.ChangeEvent) error {
	ts := time.UnixMilli(event.AppliedAtMs).UTC().Format("15:04:05.000")
	_, err := fmt.Fprintf(f.writer, "[%s] change=%s removed=%d added=%d updated=%d\n",
		ts, event.ID, len(event.Removed), len(event.Added), len(event.Updated))
	if err != nil {
		return err
	}

	for _, id := range event.Removed {
		if _, err := fmt.Fprintf(f.writer, "  - %s\n", id); err != nil {
			return err
		}
	}
	for _, id := range event.Added {
		if _, err := fmt.Fprintf(f.writer, "  + %s\n", id); err != nil {
			return err
		}
	}
	for _, u := range event.Updated {
		if _, err := fmt.Fprintf(f.writer, "  ~ %s (%d properties)\n", u.ID, len(u.Properties)); err != nil {
			return err
		}
	}
	return nil
}

func (f *defaultFormatter) FormatError(err error) error {
	_, werr := fmt.Fprintf(f.writer, "⚠  %v\n", err)
	return werr
}

type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) FormatChange(event *mirror.ChangeEvent) error {
	return render.FormatEventJSONL(f.writer, event)
}

// Errors are dropped so the output stays valid JSONL.
func (f *jsonFormatter) FormatError(error) error {
	return nil
}

// StreamChanges writes every change event published on the mirror to w until
// ctx is cancelled. Malformed events are reported and skipped.
func StreamChanges(ctx context.Context, client *mirror.Client, format render.OutputFormat, w io.Writer) error {
	sub, err := client.SubscribeChanges(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	formatter := newFormatter(format, w)
	events := sub.Events()
	errs := sub.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := formatter.FormatChange(event); err != nil {
				return fmt.Errorf("failed to write change event: %w", err)
			}

		case subErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err := formatter.FormatError(subErr); err != nil {
				return fmt.Errorf("failed to write change event: %w", err)
			}
		}
	}
}
