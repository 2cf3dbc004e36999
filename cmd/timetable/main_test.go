package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohit-sws/timetable/internal/normalize"
	"github.com/rohit-sws/timetable/internal/timetable"
)

const breakReply = "```json\n" + `{"timeblocks": [
  {"Day": "Mon", "Subject": "Maths", "Start": "9:00", "End": "10:00"},
  {"days": ["Mon", "Tue", "Wed", "Thu", "Fri"], "event_name": "Break", "start_time": "10:20", "end_time": "10:35"},
  {"day": "Funday", "event_name": "Nope", "start_time": "11:00"}
], "metadata": {"teacher": "Ms Reed"}}` + "\n```"

// setup writes a config whose default backend replays breakReply.
func setup(t *testing.T) (cfgPath, homePath string) {
	t.Helper()
	homePath = t.TempDir()
	cfgPath = filepath.Join(homePath, "config.yaml")

	reply, _ := json.Marshal(breakReply)
	content := "backends:\n  fixture:\n    type: scripted\n    enabled: true\n    script:\n      - " + string(reply) + "\n" +
		"defaults:\n  backend: fixture\n  max_concurrency: 2\n" +
		"textextract:\n  enabled: false\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, homePath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug", "json")
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected JSON log line, got %q", buf.String())
	}

	if _, err := newLogger(&buf, "loud", "text"); err == nil {
		t.Error("expected error for bad level")
	}
	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Error("expected error for bad format")
	}
}

func TestExtractCommand_Text(t *testing.T) {
	cfg, home := setup(t)

	out, err := execute(t, "extract", "--config", cfg, "--home", home, "-o", "json",
		"--text", "Mon Maths 9-10, Break 10:20-10:35 every day", "--save-response")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var res timetable.ExtractionResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(res.Timeblocks) != 6 {
		t.Fatalf("got %d timeblocks, want 6: %+v", len(res.Timeblocks), res.Timeblocks)
	}
	if res.Timeblocks[0].EventName != "Maths" || res.Timeblocks[0].StartTime != "09:00" {
		t.Errorf("first block = %+v", res.Timeblocks[0])
	}
	for i, day := range []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"} {
		tb := res.Timeblocks[i+1]
		if tb.Day != day || tb.EventName != "Break" || tb.EndTime != "10:35" {
			t.Errorf("block %d = %+v", i+1, tb)
		}
	}
	if res.MetadataObject()["teacher"] != "Ms Reed" {
		t.Errorf("metadata = %v", res.Metadata)
	}

	saved, _ := filepath.Glob(filepath.Join(home, "responses", "*.txt"))
	if len(saved) != 1 {
		t.Fatalf("expected one saved response, got %v", saved)
	}
	calls, err := os.ReadFile(filepath.Join(home, "calls.jsonl"))
	if err != nil || !strings.Contains(string(calls), `"prompt_key":"timetable.text"`) {
		t.Errorf("call not recorded: %v %s", err, calls)
	}

	// The saved reply normalizes offline to the same result.
	out, err = execute(t, "normalize", "--config", cfg, "--home", home, "-o", "json", "--report", saved[0])
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	var report normalize.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(report.Result.Timeblocks) != 6 || len(report.Rejections) != 1 || report.Candidates != 3 {
		t.Errorf("report = %+v", report)
	}
	if report.Rejections[0].Reason != normalize.ReasonInvalidDay {
		t.Errorf("rejection = %+v", report.Rejections[0])
	}
}

func TestBatchCommand(t *testing.T) {
	cfg, home := setup(t)
	src := t.TempDir()
	for _, name := range []string{"week-a.txt", "week-b.txt"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte("Mon Maths 9-10"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	outDir := filepath.Join(home, "out")

	out, err := execute(t, "batch", "--config", cfg, "--home", home, "-o", "json", "--out-dir", outDir,
		filepath.Join(src, "week-a.txt"), filepath.Join(src, "missing.txt"), filepath.Join(src, "week-b.txt"))
	if err == nil || !strings.Contains(err.Error(), "1 of 3") {
		t.Errorf("expected one failure, got %v", err)
	}

	var summary batchSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(summary.Items) != 3 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Items[1].Status != "failed" || summary.Items[0].Status != "ok" || summary.Items[2].Status != "ok" {
		t.Errorf("items out of order or wrong status: %+v", summary.Items)
	}
	for _, name := range []string{"week-a.json", "week-b.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("result %s not written: %v", name, err)
		}
	}
}

func TestConfigInit(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "nested", "config.yaml")

	if _, err := execute(t, "config", "init", "--config", path, "--home", home, "-o", "yaml"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !fileExists(path) {
		t.Fatal("config file not written")
	}
	if _, err := execute(t, "config", "init", "--config", path, "--home", home, "-o", "yaml"); err == nil {
		t.Error("expected error when config exists")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"release"`) {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRejectsUnknownOutput(t *testing.T) {
	if _, err := execute(t, "version", "-o", "xml"); err == nil {
		t.Error("expected error for unknown output format")
	}
}

func TestCalendarName(t *testing.T) {
	tests := map[string]string{
		"":                       "Timetable",
		"stdin":                  "Timetable",
		"/scans/Year 3 Week.png": "Year 3 Week",
		"timetable.docx":         "timetable",
	}
	for in, want := range tests {
		if got := calendarName(in); got != want {
			t.Errorf("calendarName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := resultPath("/out", "/in/week-a.png", "yaml"); got != "/out/week-a.yaml" {
		t.Errorf("resultPath() = %q", got)
	}
}

func TestCallsStats(t *testing.T) {
	cfg, home := setup(t)

	if _, err := execute(t, "extract", "--config", cfg, "--home", home, "-o", "json", "--text", "Mon Maths 9-10"); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	out, err := execute(t, "calls", "--config", cfg, "--home", home, "-o", "json", "--limit", "5")
	if err != nil {
		t.Fatalf("calls failed: %v", err)
	}
	var calls []map[string]any
	if err := json.Unmarshal([]byte(out), &calls); err != nil || len(calls) != 1 {
		t.Fatalf("calls = %v (%v)\n%s", calls, err, out)
	}

	out, err = execute(t, "calls", "stats", "--config", cfg, "--home", home, "-o", "json", "--by", "prompt_key")
	if err != nil {
		t.Fatalf("calls stats failed: %v", err)
	}
	var rows []struct {
		Group       string  `json:"group"`
		Count       int     `json:"count"`
		SuccessRate float64 `json:"success_rate"`
	}
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].Group != "timetable.text" || rows[0].Count != 1 || rows[0].SuccessRate != 1 {
		t.Errorf("stats = %+v", rows)
	}

	if _, err := execute(t, "calls", "stats", "--config", cfg, "--home", home, "--by", "colour"); err == nil {
		t.Error("expected error for unknown grouping")
	}
}
