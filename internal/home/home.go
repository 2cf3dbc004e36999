package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the timetable home directory.
	DefaultDirName = ".timetable"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// CallLogFileName is the default backend call log.
	CallLogFileName = "calls.jsonl"
)

// Dir represents the timetable home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.timetable).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// CallLogPath returns the path to the backend call log.
func (d *Dir) CallLogPath() string {
	return filepath.Join(d.path, CallLogFileName)
}

// InboxDir is the drop folder watched by `timetable watch`.
func (d *Dir) InboxDir() string {
	return filepath.Join(d.path, "inbox")
}

// ResultsDir holds extraction results written by `timetable watch`.
func (d *Dir) ResultsDir() string {
	return filepath.Join(d.path, "results")
}

// ResultPath returns the result file for a source document.
func (d *Dir) ResultPath(source, ext string) string {
	return filepath.Join(d.ResultsDir(), stem(source)+"."+ext)
}

// ResponsesDir holds raw backend replies, for offline re-normalization.
func (d *Dir) ResponsesDir() string {
	return filepath.Join(d.path, "responses")
}

// ResponsePath returns the raw reply file for a request.
func (d *Dir) ResponsePath(requestID string) string {
	return filepath.Join(d.ResponsesDir(), requestID+".txt")
}

// ExportsDir returns the directory for exported calendars.
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, "exports")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.InboxDir(), d.ResultsDir(), d.ResponsesDir(), d.ExportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
