// Package redefine rewrites the value of a C preprocessor #define in a
// source file.
//
// Every line of the form "#define KEY anything" is replaced with
// `#define KEY "value"`. All other lines are copied byte-for-byte. Before
// the first rewrite of a file a sibling "<path>-backup" copy is taken; it is
// never refreshed afterwards, so it always holds the file as it was before
// any redefinition was applied.
//
// Two runs against the same path at the same time race: the last rename wins.
package redefine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
)

const (
	backupSuffix = "-backup"
	newSuffix    = "-new"
)

// Result describes what a rewrite did.
type Result struct {
	Path          string
	BackupPath    string
	BackupCreated bool
	// Matched is the number of #define lines rewritten. Zero is not an error.
	Matched int
}

// BackupPath returns where the pristine copy of path is kept.
func BackupPath(path string) string {
	return path + backupSuffix
}

// HasBackup reports whether a backup of path already exists.
func HasBackup(path string) (bool, error) {
	_, err := os.Stat(BackupPath(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check backup: %w", err)
}

// ValidateKey rejects keys that cannot name a single #define token.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return fmt.Errorf("key %q must not contain whitespace", key)
	}
	return nil
}

// DefineLine returns the canonical replacement line, terminator included.
func DefineLine(key, value string) string {
	return "#define " + key + ` "` + value + `"` + "\n"
}

// matcher builds the line pattern for key. The key is quoted so it only ever
// matches itself.
func matcher(key string) *regexp.Regexp {
	return regexp.MustCompile(`^#define ` + regexp.QuoteMeta(key) + ` .*$`)
}

// Rewrite replaces the value of every "#define key ..." line in the file at
// path with the quoted value.
func Rewrite(path, key, value string) (*Result, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to read %s: is a directory", path)
	}

	res := &Result{Path: path, BackupPath: BackupPath(path)}

	hasBackup, err := HasBackup(path)
	if err != nil {
		return nil, err
	}
	if !hasBackup {
		if err := copyFile(path, res.BackupPath, info.Mode().Perm()); err != nil {
			return nil, fmt.Errorf("failed to create backup: %w", err)
		}
		res.BackupCreated = true
	}

	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	outPath := path + newSuffix
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outPath, err)
	}

	matched, err := rewriteLines(in, out, key, value)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("failed to rewrite %s: %w", path, err)
	}
	res.Matched = matched

	if err := os.Rename(outPath, path); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return res, nil
}

// rewriteLines streams r to w, replacing matching lines.
func rewriteLines(r io.Reader, w io.Writer, key, value string) (int, error) {
	re := matcher(key)
	replacement := DefineLine(key, value)

	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	matched := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			body := strings.TrimRight(line, "\r\n")
			if re.MatchString(body) {
				line = replacement
				matched++
			}
			if _, werr := bw.WriteString(line); werr != nil {
				return matched, werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return matched, err
		}
	}
	return matched, bw.Flush()
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
