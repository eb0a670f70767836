//go:build windows

package notify

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Dialog shows a modal Windows message box with an error icon.
type Dialog struct{}

func nativeDialog() (Notifier, bool) {
	return Dialog{}, true
}

// Notify blocks until the user dismisses the message box.
func (Dialog) Notify(title, message string) error {
	text, err := windows.UTF16PtrFromString(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	caption, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return fmt.Errorf("encode title: %w", err)
	}
	if _, err := windows.MessageBox(0, text, caption, windows.MB_OK|windows.MB_ICONERROR|windows.MB_SETFOREGROUND); err != nil {
		return fmt.Errorf("message box: %w", err)
	}
	return nil
}
