// Package output writes command results in the format chosen with --output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/rohit-sws/timetable/internal/timetable"
	"github.com/rohit-sws/timetable/internal/timeutil"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// DefaultFormat is the default output format.
var DefaultFormat = FormatYAML

// globalFormat is set by the root command's --output flag.
var globalFormat = DefaultFormat

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatYAML, FormatJSON, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want yaml, json or table)", s)
	}
}

// SetFormat sets the global output format. Unknown names reset to the default.
func SetFormat(s string) {
	f, err := ParseFormat(s)
	if err != nil {
		f = DefaultFormat
	}
	globalFormat = f
}

// GetFormat returns the current global output format.
func GetFormat() Format {
	return globalFormat
}

// Table is a rectangular rendering of a result.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabular values can render themselves as a table.
type Tabular interface {
	Table() Table
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return To(os.Stdout, globalFormat, data)
}

// To writes data to w in the given format. In table format, values that are
// neither Tabular nor timetables fall back to YAML.
func To(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case FormatTable:
		t, ok := asTable(data)
		if !ok {
			return To(w, FormatYAML, data)
		}
		_, err := fmt.Fprintln(w, Render(t))
		return err
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c757d"))
)

// Render draws a table with a rounded border.
func Render(t Table) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func asTable(data any) (Table, bool) {
	switch v := data.(type) {
	case Tabular:
		return v.Table(), true
	case *timetable.ExtractionResult:
		return TimetableTable(v), true
	case timetable.ExtractionResult:
		return TimetableTable(&v), true
	default:
		return Table{}, false
	}
}

// TimetableTable lays timeblocks out by weekday and start time.
func TimetableTable(r *timetable.ExtractionResult) Table {
	blocks := make([]timetable.Timeblock, len(r.Timeblocks))
	copy(blocks, r.Timeblocks)
	sort.SliceStable(blocks, func(i, j int) bool {
		di, dj := timeutil.DayIndex(blocks[i].Day), timeutil.DayIndex(blocks[j].Day)
		if di != dj {
			return di < dj
		}
		return blocks[i].StartTime < blocks[j].StartTime
	})

	t := Table{Headers: []string{"DAY", "START", "END", "EVENT", "CONFIDENCE", "NOTES"}}
	for _, tb := range blocks {
		t.Rows = append(t.Rows, []string{
			tb.Day,
			tb.StartTime,
			tb.EndTime,
			tb.EventName,
			fmt.Sprintf("%.2f", tb.Confidence),
			tb.Notes,
		})
	}
	return t
}
