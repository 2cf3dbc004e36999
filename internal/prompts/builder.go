package prompts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/rohit-sws/timetable/internal/timetable"
	"github.com/rohit-sws/timetable/internal/timeutil"
)

//go:embed rules.tmpl
var rulesTmpl string

//go:embed text.tmpl
var textTmpl string

//go:embed image.tmpl
var imageTmpl string

// Prompt keys
const (
	RulesKey = "timetable.rules"
	TextKey  = "timetable.text"
	ImageKey = "timetable.image"
)

var funcs = template.FuncMap{"join": strings.Join}

var (
	rulesTemplate = template.Must(template.New("rules").Funcs(funcs).Parse(rulesTmpl))
	textTemplate  = template.Must(template.New("text").Parse(textTmpl))
	imageTemplate = template.Must(template.New("image").Parse(imageTmpl))
)

// exampleResult is the wire shape shown to the backend.
var exampleResult = timetable.ExtractionResult{
	Timeblocks: []timetable.Timeblock{
		{Day: "Monday", EventName: "Registration", StartTime: "08:40", EndTime: "09:00", Notes: "Daily routine", Confidence: 0.95},
	},
	Metadata: timetable.Metadata{
		"total_events":     1,
		"days_covered":     []string{"Monday"},
		"extraction_notes": "Anything unusual about the layout",
	},
}

// Builder renders extraction prompts. It is safe for concurrent use.
type Builder struct {
	registry *Registry
	rules    string
}

// NewBuilder renders the shared rule set and registers every template.
func NewBuilder() *Builder {
	b := &Builder{registry: NewRegistry()}
	b.rules = renderRules()

	// Keys are constants, so registration cannot fail.
	_ = b.registry.Register(EmbeddedPrompt{
		Key:         RulesKey,
		Text:        rulesTmpl,
		Description: "Interpretation contract shared by text and image prompts",
	})
	_ = b.registry.Register(EmbeddedPrompt{
		Key:         TextKey,
		Text:        textTmpl,
		Description: "Text mode: extracted document text embedded verbatim",
	})
	_ = b.registry.Register(EmbeddedPrompt{
		Key:         ImageKey,
		Text:        imageTmpl,
		Description: "Image mode: generic grid-reading instruction sent with the binary payload",
	})
	return b
}

// Registry exposes the registered templates.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Rules returns the rendered interpretation contract.
func (b *Builder) Rules() string {
	return b.rules
}

// Text builds the text-mode prompt around already-extracted document text.
func (b *Builder) Text(sourceText string) Rendered {
	data := struct {
		Rules      string
		SourceText string
	}{Rules: b.rules, SourceText: sourceText}

	var buf bytes.Buffer
	text := b.rules + "\n\nTIMETABLE TEXT\n---\n" + sourceText + "\n---\n"
	if err := textTemplate.Execute(&buf, data); err == nil {
		text = buf.String()
	}
	return Rendered{Key: TextKey, Mode: ModeText, Hash: b.hash(TextKey), Text: text}
}

// Image builds the image-mode prompt. mimeType only changes the wording.
func (b *Builder) Image(mimeType string) Rendered {
	data := struct {
		Rules      string
		SourceKind string
	}{Rules: b.rules, SourceKind: sourceKind(mimeType)}

	var buf bytes.Buffer
	text := b.rules
	if err := imageTemplate.Execute(&buf, data); err == nil {
		text = buf.String()
	}
	return Rendered{Key: ImageKey, Mode: ModeImage, Hash: b.hash(ImageKey), Text: text}
}

func (b *Builder) hash(key string) string {
	p, _ := b.registry.Get(key)
	rules, _ := b.registry.Get(RulesKey)
	return HashText(p.Hash + rules.Hash)
}

func renderRules() string {
	example, err := json.MarshalIndent(exampleResult, "", "  ")
	if err != nil {
		example = []byte(`{"timeblocks": [], "metadata": {}}`)
	}

	data := struct {
		DurationRules  []timetable.DurationRule
		DefaultMinutes int
		Weekdays       []string
		Example        string
	}{
		DurationRules:  timetable.DurationRules,
		DefaultMinutes: timetable.DefaultDurationMinutes,
		Weekdays:       timeutil.Weekdays(),
		Example:        string(example),
	}

	var buf bytes.Buffer
	if err := rulesTemplate.Execute(&buf, data); err != nil {
		return rulesTmpl
	}
	return strings.TrimSpace(buf.String())
}

func sourceKind(mimeType string) string {
	switch {
	case mimeType == "application/pdf":
		return "PDF"
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	default:
		return "document"
	}
}
