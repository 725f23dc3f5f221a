package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	infoColor  = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#8BC34A"}
	warnColor  = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFB74D"}
	errorColor = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#EF5350"}
)

// Terminal renders notifications as styled single lines, usually on stderr.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	badge map[Level]lipgloss.Style
	title lipgloss.Style
}

// NewTerminal creates a Terminal writing to w. Color support is detected
// from w, so piping to a file yields plain text.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	badge := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return r.NewStyle().Foreground(c).Bold(true)
	}
	return &Terminal{
		w: w,
		badge: map[Level]lipgloss.Style{
			LevelInfo:  badge(infoColor),
			LevelWarn:  badge(warnColor),
			LevelError: badge(errorColor),
		},
		title: r.NewStyle().Bold(true),
	}
}

func (t *Terminal) Notify(n Notification) {
	style, ok := t.badge[n.Level]
	if !ok {
		style = t.badge[LevelInfo]
	}
	line := fmt.Sprintf("%s %s %s\n",
		style.Render(fmt.Sprintf("[%s]", n.Level)),
		t.title.Render(n.Title),
		n.Body)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.w, line)
}
