// Package output renders command results for terminals, agents and scripts.
//
// A Renderer picks between styled text (terminals), markdown (pipes and
// agents) and JSON. ModeAuto resolves to text on a TTY and markdown
// otherwise.
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

// Modes lists the accepted mode names.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON)}
}
