package output

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const (
	defaultMarkdownWidth = 80
	minMarkdownWidth     = 20
)

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth is the stdout width, then $COLUMNS, then fallback
// (80 when fallback <= 0).
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	if fallback > 0 {
		return fallback
	}
	return defaultMarkdownWidth
}

var (
	renderersMu sync.Mutex
	renderers   = map[int]*glamour.TermRenderer{}
)

// rendererFor returns a cached renderer wrapping at width. NO_COLOR picks
// the plain style. Callers hold renderersMu; a TermRenderer is not safe
// for concurrent Render calls.
func rendererFor(width int) (*glamour.TermRenderer, error) {
	if r, ok := renderers[width]; ok {
		return r, nil
	}

	style := glamour.WithAutoStyle()
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, err
	}
	renderers[width] = r
	return r, nil
}

// RenderMarkdown renders a task description for stdout. Off a terminal the
// text is returned as is so pipes get the source markdown.
func RenderMarkdown(text string) (string, error) {
	if !IsTerminal() {
		return text, nil
	}
	return RenderMarkdownWithWidth(text, TerminalWidth(defaultMarkdownWidth))
}

// RenderMarkdownWithWidth renders text wrapped at width (at least 20).
// Blank input renders as "".
func RenderMarkdownWithWidth(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	renderersMu.Lock()
	defer renderersMu.Unlock()
	r, err := rendererFor(max(width, minMarkdownWidth))
	if err != nil {
		return "", err
	}
	out, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}
