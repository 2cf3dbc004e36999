package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rohit-sws/timetable/internal/prompts"
	"github.com/rohit-sws/timetable/internal/providers"
	"github.com/rohit-sws/timetable/internal/textextract"
	"github.com/rohit-sws/timetable/internal/timetable"
)

// fakeExtractor converts any supported document to fixed text.
type fakeExtractor struct {
	text      string
	err       error
	supported string
	calls     int
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeExtractor) IsSupported(contentType string) bool {
	return contentType == f.supported
}

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// blankPDF builds a valid PDF with the given number of empty pages.
func blankPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	var kids bytes.Buffer
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	svc, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc
}

func TestNew_RequiresBackend(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without backend")
	}
}

func TestExtractText_BreakOnAllWeekdays(t *testing.T) {
	source := "Timetable Monday-Friday\nBreak 10:20-10:35 all days"
	backend := providers.NewScriptedBackend("```json\n" + `{
		"timeblocks": [
			{"day": "Monday", "event_name": "Break", "start_time": "10:20", "end_time": "10:35"},
			{"day": "Tuesday", "event_name": "Break", "start_time": "10:20", "end_time": "10:35"},
			{"day": "Wednesday", "event_name": "Break", "start_time": "10:20", "end_time": "10:35"},
			{"day": "Thursday", "event_name": "Break", "start_time": "10:20", "end_time": "10:35"},
			{"day": "Friday", "event_name": "Break", "start_time": "10:20", "end_time": "10:35"}
		],
		"metadata": {"total_events": 5}
	}` + "\n```")
	svc := newService(t, Options{Backend: backend})

	res, err := svc.ExtractText(context.Background(), source)
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}

	blocks := res.Timetable().Timeblocks
	want := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	if len(blocks) != len(want) {
		t.Fatalf("got %d timeblocks, want %d", len(blocks), len(want))
	}
	for i, tb := range blocks {
		if tb.Day != want[i] || tb.EventName != "Break" || tb.StartTime != "10:20" || tb.EndTime != "10:35" {
			t.Errorf("timeblocks[%d] = %+v", i, tb)
		}
	}

	reqs := backend.Requests()
	if len(reqs) != 1 {
		t.Fatalf("backend called %d times, want 1", len(reqs))
	}
	if !strings.Contains(reqs[0].Prompt, source) {
		t.Error("prompt does not embed the source text")
	}
	if reqs[0].Payload != nil {
		t.Error("text mode sent a payload")
	}
	if reqs[0].PromptKey != prompts.TextKey || reqs[0].PromptHash == "" {
		t.Errorf("prompt trace = %q/%q", reqs[0].PromptKey, reqs[0].PromptHash)
	}
	if res.Mode != prompts.ModeText || res.RequestID != reqs[0].RequestID {
		t.Errorf("result = %+v", res)
	}
}

func TestExtractText_SynonymCandidate(t *testing.T) {
	backend := providers.NewScriptedBackend(`{"timeblocks":[{"eventName":"Maths","dayOfWeek":"Tue","starttime":"09:15","time_end":"10:45"}]}`)
	svc := newService(t, Options{Backend: backend})

	res, err := svc.ExtractText(context.Background(), "Tue Maths 9:15 - 10:45")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	want := []timetable.Timeblock{{Day: "Tuesday", EventName: "Maths", StartTime: "09:15", EndTime: "10:45", Confidence: 0.8}}
	if !reflect.DeepEqual(res.Timetable().Timeblocks, want) {
		t.Errorf("timeblocks = %+v, want %+v", res.Timetable().Timeblocks, want)
	}
	if md, ok := res.Timetable().Metadata.(timetable.Metadata); !ok || len(md) != 0 {
		t.Errorf("metadata = %v, want empty", res.Timetable().Metadata)
	}
}

func TestExtractImage(t *testing.T) {
	backend := providers.NewScriptedBackend(`{"timeblocks":[{"day":"Fri","event_name":"Assembly","start_time":"14:30"}]}`)
	svc := newService(t, Options{Backend: backend})

	res, err := svc.ExtractImage(context.Background(), []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("ExtractImage() error = %v", err)
	}
	if got := res.Timetable().Timeblocks[0]; got.Day != "Friday" || got.EndTime != "15:00" {
		t.Errorf("timeblock = %+v", got)
	}

	req := backend.Requests()[0]
	if string(req.Payload) != "png-bytes" || req.MimeType != "image/png" || req.PromptKey != prompts.ImageKey {
		t.Errorf("request = %+v", req)
	}
	if res.Mode != prompts.ModeImage {
		t.Errorf("mode = %s", res.Mode)
	}
}

func TestExtractImage_Unaccepted(t *testing.T) {
	backend := providers.NewScriptedBackend(`{}`)
	backend.MIMEs = []string{"image/*"}
	svc := newService(t, Options{Backend: backend})

	_, err := svc.ExtractImage(context.Background(), blankPDF(1), "application/pdf")
	if !errors.Is(err, timetable.ErrUnsupportedSource) {
		t.Errorf("error = %v, want ErrUnsupportedSource", err)
	}
	if len(backend.Requests()) != 0 {
		t.Error("backend was called")
	}
}

func TestExtractDocument_Routing(t *testing.T) {
	const reply = `{"timeblocks":[{"day":"Mon","event_name":"Maths","start_time":"09:00","end_time":"10:00"}]}`

	t.Run("accepted payload goes inline", func(t *testing.T) {
		backend := providers.NewScriptedBackend(reply)
		svc := newService(t, Options{Backend: backend, Extractor: &fakeExtractor{supported: "application/pdf"}})

		res, err := svc.ExtractDocument(context.Background(), blankPDF(1), "application/pdf", "week.pdf")
		if err != nil {
			t.Fatalf("ExtractDocument() error = %v", err)
		}
		if res.Mode != prompts.ModeImage || backend.Requests()[0].Payload == nil {
			t.Errorf("expected image mode, got %s", res.Mode)
		}
	})

	t.Run("unaccepted document goes through the extractor", func(t *testing.T) {
		backend := providers.NewScriptedBackend(reply)
		textBackend := providers.NewScriptedBackend(reply)
		ex := &fakeExtractor{text: "Monday Maths 9-10", supported: docxMIME}
		svc := newService(t, Options{Backend: backend, TextBackend: textBackend, Extractor: ex})

		res, err := svc.ExtractDocument(context.Background(), []byte("PK"), docxMIME, "week.docx")
		if err != nil {
			t.Fatalf("ExtractDocument() error = %v", err)
		}
		if res.Mode != prompts.ModeText || ex.calls != 1 {
			t.Errorf("mode = %s, extractor calls = %d", res.Mode, ex.calls)
		}
		if len(backend.Requests()) != 0 || len(textBackend.Requests()) != 1 {
			t.Error("text mode did not use the text backend")
		}
		if !strings.Contains(textBackend.Requests()[0].Prompt, "Monday Maths 9-10") {
			t.Error("prompt does not embed extracted text")
		}
	})

	t.Run("plain text needs no extractor", func(t *testing.T) {
		backend := providers.NewScriptedBackend(reply)
		svc := newService(t, Options{Backend: backend})

		res, err := svc.ExtractDocument(context.Background(), []byte("Monday Maths 9-10"), "text/plain; charset=utf-8", "week.txt")
		if err != nil {
			t.Fatalf("ExtractDocument() error = %v", err)
		}
		if res.Mode != prompts.ModeText {
			t.Errorf("mode = %s", res.Mode)
		}
	})

	t.Run("no route", func(t *testing.T) {
		svc := newService(t, Options{Backend: providers.NewCompatBackend(providers.CompatConfig{APIKey: "k"})})
		_, err := svc.ExtractDocument(context.Background(), []byte("png"), "image/png", "scan.png")
		if !errors.Is(err, timetable.ErrUnsupportedSource) {
			t.Errorf("error = %v, want ErrUnsupportedSource", err)
		}
	})

	t.Run("extractor failure", func(t *testing.T) {
		boom := errors.New("tika down")
		svc := newService(t, Options{
			Backend:   providers.NewScriptedBackend(reply),
			Extractor: &fakeExtractor{err: boom, supported: docxMIME},
		})
		_, err := svc.ExtractDocument(context.Background(), []byte("PK"), docxMIME, "week.docx")
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want wrapped extractor error", err)
		}
	})
}

func TestExtractDocument_PDFCheckedBeforeBackend(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		maxPages int
		want     error
	}{
		{"garbage", []byte("%PDF-1.7 but nothing else"), 0, textextract.ErrUnreadablePDF},
		{"over the page limit", blankPDF(3), 2, textextract.ErrTooManyPages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := providers.NewScriptedBackend(`{"timeblocks":[]}`)
			ex := &fakeExtractor{text: "Monday Maths 9-10", supported: "application/pdf"}
			svc := newService(t, Options{Backend: backend, Extractor: ex, MaxPDFPages: tt.maxPages})

			_, err := svc.ExtractDocument(context.Background(), tt.data, "application/pdf", "week.pdf")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, timetable.ErrUnsupportedSource) {
				t.Errorf("error = %v, want ErrUnsupportedSource", err)
			}
			if len(backend.Requests()) != 0 || ex.calls != 0 {
				t.Error("refused PDF reached the backend or extractor")
			}
		})
	}

	t.Run("within the limit", func(t *testing.T) {
		backend := providers.NewScriptedBackend(`{"timeblocks":[{"day":"Mon","event_name":"Maths","start_time":"09:00"}]}`)
		svc := newService(t, Options{Backend: backend, MaxPDFPages: 2})
		if _, err := svc.ExtractDocument(context.Background(), blankPDF(2), "application/pdf", "week.pdf"); err != nil {
			t.Fatalf("ExtractDocument() error = %v", err)
		}
	})

	t.Run("image entry point", func(t *testing.T) {
		backend := providers.NewScriptedBackend(`{}`)
		svc := newService(t, Options{Backend: backend})
		_, err := svc.ExtractImage(context.Background(), []byte("not a pdf"), "application/pdf")
		if !errors.Is(err, textextract.ErrUnreadablePDF) || len(backend.Requests()) != 0 {
			t.Errorf("error = %v, requests = %d", err, len(backend.Requests()))
		}
	})
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "week.txt")
	if err := os.WriteFile(path, []byte("Wed Art 13:00-14:00"), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := providers.NewScriptedBackend(`{"timeblocks":[{"day":"Wed","event_name":"Art","start_time":"13:00","end_time":"14:00"}]}`)
	svc := newService(t, Options{Backend: backend})

	res, err := svc.ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if res.Source != path || res.MimeType != "text/plain" {
		t.Errorf("result = %+v", res)
	}

	if _, err := svc.ExtractFile(context.Background(), filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name  string
		steps []providers.Step
		want  error
	}{
		{"backend error", []providers.Step{{Err: errors.New("401 unauthorized")}}, timetable.ErrBackend},
		{"prose reply", []providers.Step{{Text: "I could not read this timetable, sorry."}}, timetable.ErrMalformedResponse},
		{"no timeblocks key", []providers.Step{{Text: `{"events":[]}`}}, timetable.ErrMissingTimeblocks},
		{"empty timeblocks", []providers.Step{{Text: `{"timeblocks":[],"metadata":{}}`}}, timetable.ErrEmptyExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, Options{Backend: providers.NewScriptedBackendSteps(tt.steps...)})
			res, err := svc.ExtractText(context.Background(), "Monday Maths")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
		})
	}
}

func TestExtractText_EmptySource(t *testing.T) {
	backend := providers.NewScriptedBackend(`{}`)
	svc := newService(t, Options{Backend: backend})

	_, err := svc.ExtractText(context.Background(), "  \n ")
	if !errors.Is(err, timetable.ErrEmptyExtraction) {
		t.Errorf("error = %v, want ErrEmptyExtraction", err)
	}
	if len(backend.Requests()) != 0 {
		t.Error("backend was called for empty text")
	}
}

func TestExtractText_AllRejected(t *testing.T) {
	svc := newService(t, Options{Backend: providers.NewScriptedBackend(`{"timeblocks":[{"event_name":"Maths"},{"day":"Mon"}]}`)})

	res, err := svc.ExtractText(context.Background(), "Maths")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if len(res.Timetable().Timeblocks) != 0 || !res.Report.AllRejected() {
		t.Errorf("report = %+v", res.Report)
	}
	if len(res.Report.Rejections) != 2 {
		t.Errorf("rejections = %+v", res.Report.Rejections)
	}
}

func TestExtractText_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := newService(t, Options{Backend: providers.NewScriptedBackend(`{}`)})

	_, err := svc.ExtractText(ctx, "Monday Maths")
	if !errors.Is(err, context.Canceled) || !errors.Is(err, timetable.ErrBackend) {
		t.Errorf("error = %v, want cancelled backend error", err)
	}
}
