package config

import (
	"os"
	"path/filepath"
)

// HomeDir returns the covgen state directory for a project.
// Priority order:
//  1. COVGEN_HOME environment variable (if set)
//  2. <projectRoot>/.covgen
//
// The directory is not created here; the log and history writers create it on demand.
func HomeDir(projectRoot string) string {
	if home := os.Getenv("COVGEN_HOME"); home != "" {
		return home
	}
	return filepath.Join(projectRoot, ".covgen")
}
