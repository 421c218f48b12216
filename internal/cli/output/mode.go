// Package output renders command results as styled text, markdown or JSON.
// Auto mode picks text on a terminal and markdown otherwise, so piped output
// stays readable by scripts and agents.
package output

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)
