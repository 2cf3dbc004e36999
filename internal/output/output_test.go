package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rohit-sws/timetable/internal/timetable"
)

func sample() *timetable.ExtractionResult {
	return &timetable.ExtractionResult{
		Timeblocks: []timetable.Timeblock{
			{Day: "Tuesday", EventName: "Maths", StartTime: "09:00", EndTime: "10:00", Confidence: 0.9},
			{Day: "Monday", EventName: "Break", StartTime: "10:20", EndTime: "10:35", Confidence: 0.8},
			{Day: "Monday", EventName: "Register", StartTime: "08:45", EndTime: "09:00", Confidence: 1, Notes: "in class"},
		},
		Metadata: timetable.Metadata{"teacher": "Ms Reed"},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"yaml", "json", "table"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, Format(s), f)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestSetFormat(t *testing.T) {
	t.Cleanup(func() { SetFormat(string(DefaultFormat)) })

	SetFormat("json")
	assert.Equal(t, FormatJSON, GetFormat())

	SetFormat("bogus")
	assert.Equal(t, DefaultFormat, GetFormat())
}

func TestTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, To(&buf, FormatJSON, sample()))

	var got timetable.ExtractionResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got.Timeblocks, 3)
	assert.Contains(t, buf.String(), `  "timeblocks"`)
}

func TestTo_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, To(&buf, FormatYAML, sample()))

	var got timetable.ExtractionResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Maths", got.Timeblocks[0].EventName)
	assert.Equal(t, "Ms Reed", got.MetadataObject()["teacher"])
}

func TestTo_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, To(&buf, FormatTable, sample()))
	out := buf.String()

	assert.Contains(t, out, "EVENT")
	assert.Contains(t, out, "in class")
	assert.Contains(t, out, "0.90")

	// Monday rows first, ordered by start time.
	reg := strings.Index(out, "Register")
	brk := strings.Index(out, "Break")
	maths := strings.Index(out, "Maths")
	require.True(t, reg > 0 && brk > 0 && maths > 0)
	assert.Less(t, reg, brk)
	assert.Less(t, brk, maths)
}

func TestTo_TableFallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, To(&buf, FormatTable, map[string]int{"count": 2}))
	assert.Equal(t, "count: 2\n", buf.String())
}

type rows []string

func (r rows) Table() Table {
	t := Table{Headers: []string{"NAME"}}
	for _, s := range r {
		t.Rows = append(t.Rows, []string{s})
	}
	return t
}

func TestTo_Tabular(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, To(&buf, FormatTable, rows{"openrouter", "scripted"}))
	assert.Contains(t, buf.String(), "openrouter")
	assert.Contains(t, buf.String(), "NAME")
}

func TestTimetableTable_DoesNotReorderInput(t *testing.T) {
	r := sample()
	TimetableTable(r)
	assert.Equal(t, "Tuesday", r.Timeblocks[0].Day)
}
