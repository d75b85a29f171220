package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer builds the markdown renderer used for final answers. Glamour
// picks a light or dark style from the terminal background; when no usable
// terminal is detected the answer is returned unstyled instead of failing
// the run.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
