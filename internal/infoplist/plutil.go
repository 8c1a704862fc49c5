package infoplist

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const plutilBinary = "plutil"

// plutil -extract reports a missing key with this message on stderr.
const plutilNoValue = "No value at that key path"

// PlutilRecord edits an Info.plist through the plutil command.
type PlutilRecord struct {
	path   string
	binary string
}

// NewPlutilRecord returns a record that runs plutil against path.
func NewPlutilRecord(path string) *PlutilRecord {
	return &PlutilRecord{path: path, binary: plutilBinary}
}

func (r *PlutilRecord) Path() string {
	return r.path
}

// Get runs `plutil -extract <key> raw -o - <path>`.
func (r *PlutilRecord) Get(ctx context.Context, key string) (string, error) {
	out, err := r.run(ctx, "-extract", key, "raw", "-o", "-", r.path)
	if err != nil {
		if strings.Contains(err.Error(), plutilNoValue) {
			return "", fmt.Errorf("failed to read %s from %s: %w: %w", key, r.path, ErrNoKey, err)
		}
		return "", fmt.Errorf("failed to read %s from %s: %w", key, r.path, err)
	}
	// raw output ends with a newline plutil adds.
	return strings.TrimSuffix(out, "\n"), nil
}

// Apply runs `plutil -replace <key> -string <value> <path>` for each field.
// A failing field stops the sequence; earlier fields stay written.
func (r *PlutilRecord) Apply(ctx context.Context, fields []Field) error {
	for _, f := range fields {
		if _, err := r.run(ctx, "-replace", f.Key, "-string", f.Value, r.path); err != nil {
			return fmt.Errorf("failed to write %s to %s: %w", f.Key, r.path, err)
		}
	}
	return nil
}

func (r *PlutilRecord) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
