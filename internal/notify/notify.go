// Package notify shows handler failures to the user. A protocol handler is
// usually started by a browser or file manager with no console attached, so
// on Windows failures are shown in a modal message box; elsewhere they are
// written to stderr as a bordered panel.
package notify

import (
	"fmt"
	"io"
	"strings"
)

// Modes accepted by New.
const (
	ModeAuto     = "auto"
	ModeDialog   = "dialog"
	ModeTerminal = "terminal"
	ModeNone     = "none"
)

// Notifier presents an error message to the user and blocks until it has been shown.
type Notifier interface {
	Notify(title, message string) error
}

// New returns the notifier for mode. Dialog mode falls back to the terminal
// on platforms without native message boxes.
func New(mode string, w io.Writer) Notifier {
	switch mode {
	case ModeNone:
		return Discard{}
	case ModeTerminal:
		return NewTerminal(w)
	default:
		if d, ok := nativeDialog(); ok {
			return d
		}
		return NewTerminal(w)
	}
}

// Terminal renders notifications as a styled panel.
type Terminal struct {
	w     io.Writer
	theme Theme
}

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, theme: NewTheme(w)}
}

// Notify writes the panel to the terminal's writer.
func (t *Terminal) Notify(title, message string) error {
	body := t.theme.Title.Render(title) + "\n\n" + strings.TrimRight(message, "\n")
	_, err := fmt.Fprintln(t.w, t.theme.Panel.Render(body))
	return err
}

// Discard drops notifications.
type Discard struct{}

func (Discard) Notify(string, string) error { return nil }
