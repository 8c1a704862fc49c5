package infoplist

import (
	"context"
	"fmt"
	"os"

	"howett.net/plist"
)

// FileRecord edits an Info.plist in-process. The file keeps the format it
// was read in (XML, binary or OpenStep).
type FileRecord struct {
	path string
}

// NewFileRecord returns a record backed by the plist at path.
func NewFileRecord(path string) *FileRecord {
	return &FileRecord{path: path}
}

func (r *FileRecord) Path() string {
	return r.path
}

// Get returns the string value of key. Missing keys and non-string values
// are errors.
func (r *FileRecord) Get(_ context.Context, key string) (string, error) {
	dict, _, err := r.load()
	if err != nil {
		return "", err
	}
	raw, ok := dict[key]
	if !ok {
		return "", fmt.Errorf("failed to read %s from %s: %w", key, r.path, ErrNoKey)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("failed to read %s from %s: value is %T, not a string", key, r.path, raw)
	}
	return s, nil
}

// Apply replaces all fields and writes the file once.
func (r *FileRecord) Apply(_ context.Context, fields []Field) error {
	dict, format, err := r.load()
	if err != nil {
		return err
	}
	for _, f := range fields {
		dict[f.Key] = f.Value
	}

	var data []byte
	if format == plist.BinaryFormat {
		data, err = plist.Marshal(dict, format)
	} else {
		data, err = plist.MarshalIndent(dict, format, "\t")
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", r.path, err)
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(r.path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.WriteFile(r.path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.path, err)
	}
	return nil
}

func (r *FileRecord) load() (map[string]any, int, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read plist: %w", err)
	}
	var dict map[string]any
	format, err := plist.Unmarshal(data, &dict)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse plist %s: %w", r.path, err)
	}
	if dict == nil {
		dict = make(map[string]any)
	}
	return dict, format, nil
}
