package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/drey/pkg/mirror"
	"github.com/dyluth/drey/pkg/tree"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
// Set to 6 characters to balance usability with collision avoidance.
const MinShortIDLength = 6

// Index is anything instance IDs can be looked up in.
type Index interface {
	// Exists reports whether the full ID is known.
	Exists(ctx context.Context, id string) (bool, error)
	// MatchPrefix returns every known ID starting with prefix.
	MatchPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Resolve resolves a short ID prefix to a full instance ID.
// Returns the full ID if exactly one match found.
// Returns error if zero or multiple matches found.
//
// The function handles three cases:
// 1. Input is already a full UUID (36 chars, 4 hyphens) - validates existence
// 2. Input is too short (< 6 chars) - returns validation error
// 3. Input is a short prefix - scans for matches and returns unique result
func Resolve(ctx context.Context, index Index, shortID string) (tree.ID, error) {
	shortID = strings.ToLower(shortID)

	if len(shortID) == 36 && strings.Count(shortID, "-") == 4 {
		id, err := tree.ParseID(shortID)
		if err != nil {
			return tree.NoID, err
		}
		exists, err := index.Exists(ctx, shortID)
		if err != nil {
			return tree.NoID, fmt.Errorf("failed to verify instance existence: %w", err)
		}
		if !exists {
			return tree.NoID, &NotFoundError{ShortID: shortID}
		}
		return id, nil
	}

	if len(shortID) < MinShortIDLength {
		return tree.NoID, fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}
	if strings.Trim(shortID, "0123456789abcdef-") != "" {
		return tree.NoID, fmt.Errorf("short ID may only contain hexadecimal digits and '-' (got %q)", shortID)
	}

	matches, err := index.MatchPrefix(ctx, shortID)
	if err != nil {
		return tree.NoID, fmt.Errorf("failed to search for instance: %w", err)
	}

	switch len(matches) {
	case 0:
		return tree.NoID, &NotFoundError{ShortID: shortID}
	case 1:
		return tree.ParseID(matches[0])
	default:
		return tree.NoID, &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// TreeIndex looks IDs up in an in-memory tree.
type TreeIndex struct {
	Tree *tree.Tree
}

func (x TreeIndex) Exists(_ context.Context, id string) (bool, error) {
	parsed, err := tree.ParseID(id)
	if err != nil {
		return false, err
	}
	_, ok := x.Tree.Get(parsed)
	return ok, nil
}

func (x TreeIndex) MatchPrefix(_ context.Context, prefix string) ([]string, error) {
	var matches []string
	x.Tree.Walk(func(inst *tree.Instance, _ int) bool {
		if s := inst.ID().String(); strings.HasPrefix(s, prefix) {
			matches = append(matches, s)
		}
		return true
	})
	sort.Strings(matches)
	return matches, nil
}

// MirrorIndex looks IDs up among the instances of a Redis mirror.
type MirrorIndex struct {
	Client *mirror.Client
}

func (x MirrorIndex) Exists(ctx context.Context, id string) (bool, error) {
	return x.Client.InstanceExists(ctx, id)
}

func (x MirrorIndex) MatchPrefix(ctx context.Context, prefix string) ([]string, error) {
	return x.Client.ScanInstances(ctx, prefix)
}

// NotFoundError indicates no instances matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no instances found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple instances matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d instances", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous short IDs.
// Lists all matching IDs (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Short ID '%s' matches %d instances:\n", err.ShortID, len(err.Matches))

	displayCount := min(len(err.Matches), 10)
	for _, match := range err.Matches[:displayCount] {
		fmt.Fprintf(&b, "  %s\n", match)
	}

	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the instance.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
