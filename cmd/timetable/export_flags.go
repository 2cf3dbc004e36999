package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/config"
	"github.com/rohit-sws/timetable/internal/export"
	"github.com/rohit-sws/timetable/internal/output"
	"github.com/rohit-sws/timetable/internal/timetable"
)

// exportFlags are shared by commands that can write calendars.
type exportFlags struct {
	timezone string
	weekOf   string
	weeks    int
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.timezone, "timezone", "", "IANA timezone for calendar export (default: export.timezone)")
	cmd.Flags().StringVar(&f.weekOf, "week-of", "", "first week of the calendar, YYYY-MM-DD (default: export.week_of or this week)")
	cmd.Flags().IntVar(&f.weeks, "weeks", 0, "weekly repetitions, 0 = no end (default: export.weeks)")
}

// options merges flags over configuration; flags win when set.
func (f *exportFlags) options(cmd *cobra.Command, cfg config.ExportCfg, name string) (export.Options, error) {
	opts := export.Options{Timezone: cfg.Timezone, Weeks: cfg.Weeks, Name: name}
	weekOf := cfg.WeekOf

	if cmd.Flags().Changed("timezone") {
		opts.Timezone = f.timezone
	}
	if cmd.Flags().Changed("weeks") {
		opts.Weeks = f.weeks
	}
	if cmd.Flags().Changed("week-of") {
		weekOf = f.weekOf
	}
	if weekOf != "" {
		t, err := time.Parse(time.DateOnly, weekOf)
		if err != nil {
			return opts, fmt.Errorf("invalid week-of %q: %w", weekOf, err)
		}
		opts.WeekOf = t
	}
	if opts.Weeks < 0 {
		return opts, fmt.Errorf("weeks must not be negative")
	}
	return opts, nil
}

// writeICS renders result as a calendar to path ("-" for stdout).
func writeICS(cmd *cobra.Command, path string, result *timetable.ExtractionResult, opts export.Options) error {
	data, err := export.ICS(result, opts)
	if err != nil {
		return fmt.Errorf("calendar export failed: %w", err)
	}
	if path == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), data)
		return err
	}
	return writeFile(path, []byte(data))
}

// writeStructured writes v to path as JSON when the output format is JSON
// and YAML otherwise.
func writeStructured(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := output.To(f, fileFormat(), v); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// fileFormat is the structured format used for result files.
func fileFormat() output.Format {
	if output.GetFormat() == output.FormatJSON {
		return output.FormatJSON
	}
	return output.FormatYAML
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// resultPath places a file named after source in dir.
func resultPath(dir, source, ext string) string {
	base := filepath.Base(source)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"."+ext)
}
