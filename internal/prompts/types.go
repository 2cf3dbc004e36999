// Package prompts builds the instruction text sent to an extraction backend.
//
// Prompt bodies live in embedded .tmpl files and are rendered with
// text/template. Every template is registered under a hierarchical key with a
// content hash, so a recorded backend call can be traced to the exact prompt
// version that produced it.
//
// Two modes exist:
//   - text: the document was already converted to plain text, which is embedded verbatim
//   - image: the document is sent as binary alongside a generic grid-reading instruction
package prompts

// Mode selects how the source document reaches the backend.
type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
)

// EmbeddedPrompt is a prompt template compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: timetable.text
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// Rendered is the final prompt for one extraction.
type Rendered struct {
	Key  string `json:"key" yaml:"key"`
	Mode Mode   `json:"mode" yaml:"mode"`
	Hash string `json:"hash" yaml:"hash"` // hash of the template, not of the rendered text
	Text string `json:"text" yaml:"text"`
}
