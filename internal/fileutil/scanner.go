package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WalkOptions configures directory traversal.
type WalkOptions struct {
	// MaxDepth limits recursion depth (0 = unlimited, 1 = direct children only)
	MaxDepth int
	// OnTruncate, if set, is called with every directory left out because it
	// sits deeper than MaxDepth. Its descendants are not reported separately.
	OnTruncate func(dir string)
}

// ScanResult contains the results of a file scan
type ScanResult struct {
	// Files contains the paths of all regular files found, sorted
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

// ListDirectories returns every directory below root, excluding root itself.
// A symbolic link to a directory is listed but not walked into.
// Paths are joined onto root as given, so a relative root yields relative paths.
func ListDirectories(root string, opts WalkOptions) ([]string, error) {
	if err := requireDir(root); err != nil {
		return nil, err
	}

	dirs := make([]string, 0)
	err := walk(root, opts, func(path string, d fs.DirEntry) {
		if d.IsDir() || linksToDir(path, d) {
			dirs = append(dirs, path)
		}
	}, func(path string, err error) error {
		return fmt.Errorf("error accessing %s: %w", path, err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(dirs)
	return dirs, nil
}

// ScanFiles returns every regular file below root. Entries that cannot be
// read are recorded in ScanResult.Errors and the walk continues.
func ScanFiles(root string, opts WalkOptions) (*ScanResult, error) {
	if err := requireDir(root); err != nil {
		return nil, err
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	err := walk(root, opts, func(path string, d fs.DirEntry) {
		if d.Type().IsRegular() {
			result.Files = append(result.Files, path)
		}
	}, func(path string, err error) error {
		result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
		return nil // Continue walking
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	return nil
}

// linksToDir reports whether d is a symbolic link whose target is a directory.
// Dangling and looping links report false.
func linksToDir(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// walk visits every entry below root honoring opts. onErr decides whether an
// access error aborts the walk (non-nil return) or is skipped.
func walk(root string, opts WalkOptions, visit func(string, fs.DirEntry), onErr func(string, error) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if cbErr := onErr(path, err); cbErr != nil {
				return cbErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip the root directory itself
		if path == root {
			return nil
		}

		if opts.MaxDepth > 0 && depth(root, path) > opts.MaxDepth {
			if opts.OnTruncate != nil && (d.IsDir() || linksToDir(path, d)) {
				opts.OnTruncate(path)
			}
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		visit(path, d)
		return nil
	})
}

// depth returns how many path components path sits below root.
func depth(root, path string) int {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(relPath, string(filepath.Separator)) + 1
}
