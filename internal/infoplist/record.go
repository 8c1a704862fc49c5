// Package infoplist reads and replaces string fields of an Info.plist.
//
// Two backends are provided: PlutilRecord shells out to macOS plutil, and
// FileRecord edits the file in-process. Both treat the plist as a flat
// string-keyed dictionary and touch only the fields they are asked about.
package infoplist

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Field names written by the bundle updater.
const (
	KeyExecutable         = "CFBundleExecutable"
	KeyIdentifier         = "CFBundleIdentifier"
	KeyName               = "CFBundleName"
	KeyVersion            = "CFBundleVersion"
	KeyShortVersionString = "CFBundleShortVersionString"
	KeyGetInfoString      = "CFBundleGetInfoString"
)

// ErrNoKey is returned by Record.Get when the key is absent.
var ErrNoKey = errors.New("no such key")

// Field is one key/value replacement.
type Field struct {
	Key   string
	Value string
}

// Record is a metadata record addressed field by field.
type Record interface {
	// Get returns the string value of key. A missing key is ErrNoKey.
	Get(ctx context.Context, key string) (string, error)
	// Apply replaces each field with a string value, in order.
	Apply(ctx context.Context, fields []Field) error
	// Path returns the file backing the record.
	Path() string
}

// Backend selects a Record implementation.
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendPlutil Backend = "plutil"
	BackendFile   Backend = "file"
)

// ParseBackend validates a backend name. Empty means auto.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendPlutil, BackendFile:
		return b, nil
	default:
		return "", fmt.Errorf("unknown plist backend %q (want auto, plutil or file)", s)
	}
}

// Open returns a Record for path using backend. Auto uses plutil when it is
// on PATH and the in-process editor otherwise.
func Open(path string, backend Backend) (Record, error) {
	switch backend {
	case BackendPlutil:
		return NewPlutilRecord(path), nil
	case BackendFile:
		return NewFileRecord(path), nil
	case BackendAuto, "":
		if _, err := exec.LookPath(plutilBinary); err == nil {
			return NewPlutilRecord(path), nil
		}
		return NewFileRecord(path), nil
	default:
		return nil, fmt.Errorf("unknown plist backend %q", backend)
	}
}
