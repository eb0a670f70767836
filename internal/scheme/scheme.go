// Package scheme registers the handler executable as the per-user URL protocol
// handler for its scheme.
package scheme

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned on platforms without a per-user protocol registry.
var ErrUnsupported = errors.New("URL scheme registration is only supported on Windows")

// ErrNotRegistered is returned by Lookup when the scheme has no handler.
var ErrNotRegistered = errors.New("URL scheme is not registered")

// Registration describes the protocol handler entry for one scheme.
type Registration struct {
	Scheme     string
	Title      string
	Executable string
}

// KeyPath is the registry key, relative to HKEY_CURRENT_USER, that owns the scheme.
func (r Registration) KeyPath() string {
	return KeyPath(r.Scheme)
}

// Description is the default value of the scheme key.
func (r Registration) Description() string {
	return "URL:" + r.Title
}

// Command is the shell open command. The shell substitutes the full URL for %1.
func (r Registration) Command() string {
	return fmt.Sprintf(`"%s" "%%1"`, r.Executable)
}

func (r Registration) validate() error {
	if r.Scheme == "" {
		return errors.New("scheme is required")
	}
	if strings.ContainsAny(r.Scheme, `\/`) {
		return fmt.Errorf("invalid scheme %q", r.Scheme)
	}
	if r.Executable == "" {
		return errors.New("executable path is required")
	}
	return nil
}

// KeyPath returns the registry key, relative to HKEY_CURRENT_USER, for scheme.
func KeyPath(scheme string) string {
	return `Software\Classes\` + scheme
}

// CommandKeyPath returns the key holding the open command for scheme.
func CommandKeyPath(scheme string) string {
	return KeyPath(scheme) + `\shell\open\command`
}

// Register writes the protocol handler keys for r, replacing any existing command.
func Register(r Registration) error {
	if err := r.validate(); err != nil {
		return err
	}
	return register(r)
}

// Unregister removes the protocol handler keys for scheme. Removing a scheme that
// is not registered is not an error.
func Unregister(scheme string) error {
	if scheme == "" {
		return errors.New("scheme is required")
	}
	return unregister(scheme)
}

// Lookup returns the open command currently registered for scheme.
func Lookup(scheme string) (string, error) {
	return lookup(scheme)
}
