// Package search implements the recursive substring search behind
// "covgen search".
package search

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/harrison/covgen/internal/fileutil"
)

// Search walks dir and writes "Found in <path>" to w for every file that
// contains needle on some line. Each file is reported at most once. Files
// that cannot be read, or that are not valid UTF-8 anywhere in their
// content, are skipped without a message.
//
// It returns the number of files reported.
func Search(ctx context.Context, dir, needle string, w io.Writer) (int, error) {
	scan, err := fileutil.ScanFiles(dir, fileutil.WalkOptions{})
	if err != nil {
		return 0, err
	}

	found := 0
	for _, path := range scan.Files {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		ok, err := fileContains(path, []byte(needle))
		if err != nil || !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "Found in %s\n", path); err != nil {
			return found, err
		}
		found++
	}
	return found, nil
}

// fileContains reports whether some line of path contains needle. The whole
// file is read even after a match: a line that is not valid UTF-8 anywhere
// in the file is returned as an error.
func fileContains(path string, needle []byte) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	matched := false
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			if !utf8.Valid(line) {
				return false, fmt.Errorf("%s: invalid UTF-8", path)
			}
			if !matched && bytes.Contains(line, needle) {
				matched = true
			}
		}
		if errors.Is(err, io.EOF) {
			return matched, nil
		}
		if err != nil {
			return false, err
		}
	}
}
