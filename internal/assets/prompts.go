// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

// ColorizeDefaultPrompt is sent when the user gives no hint.
//
//go:embed prompts/colorize-default.txt
var ColorizeDefaultPrompt string

//go:embed prompts/colorize-hint.txt
var colorizeHintTemplate string

// text/template, not html/template: the hint reaches the model verbatim.
var colorizeHintTmpl = template.Must(template.New("colorize-hint").Parse(colorizeHintTemplate))

// PromptData holds the dynamic data injected into prompt templates.
type PromptData struct {
	// Hint is the user's free-text instruction, inserted as typed.
	Hint string
}

// RenderColorizePrompt returns the colorization instruction for hint.
// A hint made only of whitespace counts as absent.
func RenderColorizePrompt(hint string) string {
	if strings.TrimSpace(hint) == "" {
		return ColorizeDefaultPrompt
	}
	return renderTemplate(colorizeHintTmpl, PromptData{Hint: hint})
}

// renderTemplate executes a pre-parsed template.
func renderTemplate(tmpl *template.Template, data PromptData) string {
	var buf bytes.Buffer
	// Execution errors are not expected with a single string field; whatever
	// was rendered is returned.
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}
