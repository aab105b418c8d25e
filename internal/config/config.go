package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/shlex"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// TargetPlaceholder is replaced by the target name in object directory templates.
const TargetPlaceholder = "{target}"

// HistoryConfig represents run history ledger configuration
type HistoryConfig struct {
	// Enabled records every pipeline run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database (empty = <home>/history.db)
	DBPath string `yaml:"db_path" env:"COVGEN_HISTORY_DB"`

	// KeepDays is the number of days to keep run records (0 = forever)
	KeepDays int `yaml:"keep_days" validate:"gte=0"`
}

// Config represents covgen configuration options
type Config struct {
	// ProjectRoot is the root of the instrumented CMake project
	ProjectRoot string `yaml:"project_root" env:"COVGEN_PROJECT_ROOT" validate:"required"`

	// TestsRoot holds one output directory per target (empty = <project_root>/tests)
	TestsRoot string `yaml:"tests_root" env:"COVGEN_TESTS_ROOT"`

	// LibraryObjectDir is the library-side object directory template, relative to ProjectRoot
	LibraryObjectDir string `yaml:"library_object_dir" validate:"required,target_template"`

	// TestObjectDir is the test-binary object directory template, relative to ProjectRoot
	TestObjectDir string `yaml:"test_object_dir" validate:"required,target_template"`

	// Collector is the coverage data collector command (lcov compatible)
	Collector string `yaml:"collector" env:"COVGEN_COLLECTOR" validate:"required,command"`

	// Renderer is the HTML report renderer command (genhtml compatible)
	Renderer string `yaml:"renderer" env:"COVGEN_RENDERER" validate:"required,command"`

	// ExcludePatterns are the globs removed from the raw coverage record
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// MaxDepth bounds instrumentation directory expansion (0 = unlimited)
	MaxDepth int `yaml:"max_depth" validate:"gte=0"`

	// Timeout is the maximum duration of a pipeline run (0 = no timeout)
	Timeout time.Duration `yaml:"-" env:"COVGEN_TIMEOUT" validate:"gte=0"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level" env:"COVGEN_LOG_LEVEL" validate:"oneof=trace debug info warn error"`

	// LogDir is the directory where run logs are written (empty = <home>/logs)
	LogDir string `yaml:"log_dir" env:"COVGEN_LOG_DIR"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config reproducing the CUtils CMake layout
func DefaultConfig() *Config {
	return &Config{
		ProjectRoot:      ".",
		TestsRoot:        "",
		LibraryObjectDir: filepath.Join("build", "lib", "CMakeFiles", "CUtils.dir", TargetPlaceholder),
		TestObjectDir:    filepath.Join("build", "tests", TargetPlaceholder, "CMakeFiles", TargetPlaceholder+"Test.dir"),
		Collector:        "lcov",
		Renderer:         "genhtml",
		ExcludePatterns:  []string{"*googletest/*", "/usr/include/*"},
		MaxDepth:         64,
		Timeout:          0,
		LogLevel:         "info",
		LogDir:           "",
		History: HistoryConfig{
			Enabled:  true,
			DBPath:   "",
			KeepDays: 90,
		},
	}
}

// LoadConfig loads configuration from the specified file path and applies
// COVGEN_* environment overrides.
// If the file doesn't exist, defaults are used without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// File doesn't exist, keep defaults (not an error)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := cfg.applyYAML(data); err != nil {
			return nil, err
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	return cfg, nil
}

// applyYAML merges YAML content over the current values. Keys absent from
// the document leave the existing value untouched.
func (c *Config) applyYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Durations are written as strings ("30m", "1h30m")
	var raw struct {
		Timeout string `yaml:"timeout"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", raw.Timeout, err)
		}
		c.Timeout = timeout
	}

	return nil
}

// LoadConfigFromDir loads configuration from .covgen/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".covgen", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(projectRoot, testsRoot *string, timeout *time.Duration, logLevel, logDir *string, historyEnabled *bool) {
	if projectRoot != nil {
		c.ProjectRoot = *projectRoot
	}
	if testsRoot != nil {
		c.TestsRoot = *testsRoot
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if historyEnabled != nil {
		c.History.Enabled = *historyEnabled
	}
}

// Resolve turns every configured path into an absolute path: "~" is
// expanded, ProjectRoot is resolved against the working directory, TestsRoot
// against ProjectRoot, and empty LogDir/DBPath fall back to the home directory.
// Once resolved, nothing downstream depends on the working directory.
func (c *Config) Resolve() error {
	root, err := absPath(c.ProjectRoot, "")
	if err != nil {
		return fmt.Errorf("resolve project_root: %w", err)
	}
	c.ProjectRoot = root

	if c.TestsRoot == "" {
		c.TestsRoot = filepath.Join(root, "tests")
	} else if c.TestsRoot, err = absPath(c.TestsRoot, root); err != nil {
		return fmt.Errorf("resolve tests_root: %w", err)
	}

	home := HomeDir(root)
	if c.LogDir == "" {
		c.LogDir = filepath.Join(home, "logs")
	} else if c.LogDir, err = absPath(c.LogDir, ""); err != nil {
		return fmt.Errorf("resolve log_dir: %w", err)
	}

	if c.History.DBPath == "" {
		c.History.DBPath = filepath.Join(home, "history.db")
	} else if c.History.DBPath, err = absPath(c.History.DBPath, ""); err != nil {
		return fmt.Errorf("resolve history.db_path: %w", err)
	}

	return nil
}

// absPath expands "~" and makes path absolute. Relative paths are joined onto
// base when base is set, otherwise resolved against the working directory.
func absPath(path, base string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(expanded) && base != "" {
		expanded = filepath.Join(base, expanded)
	}
	return filepath.Abs(expanded)
}

// Validate validates the configuration values
// Returns an error listing every invalid field
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate config: %w", err)
		}

		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, describeFieldError(fe))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
	}

	for _, pattern := range c.ExcludePatterns {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("invalid configuration: exclude_patterns must not contain empty patterns")
		}
	}

	return nil
}

// ObjectDirs expands both object directory templates for target, rooted at ProjectRoot.
func (c *Config) ObjectDirs(target string) (library, test string) {
	library = filepath.Join(c.ProjectRoot, strings.ReplaceAll(c.LibraryObjectDir, TargetPlaceholder, target))
	test = filepath.Join(c.ProjectRoot, strings.ReplaceAll(c.TestObjectDir, TargetPlaceholder, target))
	return library, test
}

// OutputDir returns the per-target output directory.
func (c *Config) OutputDir(target string) string {
	return filepath.Join(c.TestsRoot, target)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Object directory templates must mention the target, otherwise every
	// target would resolve to the same directory.
	mustRegister(v, "target_template", func(fl validator.FieldLevel) bool {
		return strings.Contains(fl.Field().String(), TargetPlaceholder)
	})

	// Tool commands must split into at least a program name.
	mustRegister(v, "command", func(fl validator.FieldLevel) bool {
		fields, err := shlex.Split(fl.Field().String())
		return err == nil && len(fields) > 0
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register %s validation: %v", tag, err))
	}
}

// describeFieldError renders a validation failure using the YAML key name.
func describeFieldError(fe validator.FieldError) string {
	key := yamlKey(fe.StructNamespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "target_template":
		return fmt.Sprintf("%s must contain %s", key, TargetPlaceholder)
	case "command":
		return fmt.Sprintf("%s is not a valid command: %q", key, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", key, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("invalid %s %q, must be one of: %s", key, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", key, fe.Tag())
	}
}

var yamlKeys = map[string]string{
	"ProjectRoot":      "project_root",
	"LibraryObjectDir": "library_object_dir",
	"TestObjectDir":    "test_object_dir",
	"Collector":        "collector",
	"Renderer":         "renderer",
	"MaxDepth":         "max_depth",
	"Timeout":          "timeout",
	"LogLevel":         "log_level",
	"History.KeepDays": "history.keep_days",
}

// yamlKey maps "Config.History.KeepDays" to "history.keep_days".
func yamlKey(namespace string) string {
	trimmed := strings.TrimPrefix(namespace, "Config.")
	if key, ok := yamlKeys[trimmed]; ok {
		return key
	}
	return trimmed
}
