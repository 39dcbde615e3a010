// Package document reads and writes the YAML files the drey CLI works with:
// tree files holding a whole instance tree and patch files holding a
// snapshot.PatchSet.
//
// Property values use the {type, value} form shared with the mirror:
//
//	properties:
//	  Anchored: {type: bool, value: true}
//	  PrimaryPart: {type: ref, value: 6f1c...}
//
// Refs inside added snapshots may name the snapshot_id of another snapshot of
// the same patch.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// PathError reports a problem at a specific location of a document, such as
// added[0].instance.children[1].
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func pathErrorf(path, format string, args ...any) error {
	return &PathError{Path: path, Err: fmt.Errorf(format, args...)}
}

// decodeStrict unmarshals data into v, rejecting unknown fields.
func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("document is empty")
		}
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func readFile(path, kind string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file: %w", kind, err)
	}
	return data, nil
}
