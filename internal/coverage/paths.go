package coverage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/covgen/internal/config"
	"github.com/harrison/covgen/internal/models"
)

// Resolver maps a target name to its directories. It only stats paths.
type Resolver struct {
	cfg *config.Config
}

// NewResolver creates a Resolver over a resolved configuration.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve builds the layout for target and verifies that the library object
// directory, the test object directory and the output directory exist, in
// that order. The first missing one is returned as a *MissingPathError.
func (r *Resolver) Resolve(target string) (models.Layout, error) {
	if err := validateTarget(target); err != nil {
		return models.Layout{}, err
	}

	library, test := r.cfg.ObjectDirs(target)
	layout := models.Layout{
		Target:           target,
		LibraryObjectDir: library,
		TestObjectDir:    test,
		OutputDir:        r.cfg.OutputDir(target),
	}

	checks := []struct {
		role string
		path string
	}{
		{"library object", layout.LibraryObjectDir},
		{"test object", layout.TestObjectDir},
		{"output", layout.OutputDir},
	}
	for _, c := range checks {
		if err := requireDir(c.role, c.path); err != nil {
			return models.Layout{}, err
		}
	}

	return layout, nil
}

func requireDir(role, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &MissingPathError{Role: role, Path: path, Err: err}
	}
	if !info.IsDir() {
		return &MissingPathError{Role: role, Path: path}
	}
	return nil
}

// validateTarget rejects names that would escape the configured roots.
func validateTarget(target string) error {
	switch {
	case strings.TrimSpace(target) == "":
		return &InvalidTargetError{Target: target, Reason: "target name is empty"}
	case target == "." || target == "..":
		return &InvalidTargetError{Target: target, Reason: "target name must not be a relative directory reference"}
	case strings.ContainsRune(target, '/') || strings.ContainsRune(target, filepath.Separator):
		return &InvalidTargetError{Target: target, Reason: "target name must not contain a path separator"}
	}
	return nil
}
