// Package invocation parses the argument list the operating system hands to a
// custom URL-protocol handler.
//
// The first argument is the activated URL, e.g.
//
//	runapp://opticks/C:/Data/a.tif C:/Data/b.tif
//
// The host segment ("opticks") is the routing key. Everything after "<key>/" is
// the payload: shells that launch URL handlers often pass the whole link as one
// token, so the target's first argument may be glued onto the URL with no
// separating space. Remaining arguments are forwarded verbatim.
package invocation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoArguments is returned when the handler is started without a URL.
	ErrNoArguments = errors.New("no arguments")
	// ErrInvalidPrefix is returned when the first argument is not a URL for the handled scheme.
	ErrInvalidPrefix = errors.New("invalid prefix")
	// ErrEmptyKey is returned when the URL carries no routing key.
	ErrEmptyKey = errors.New("empty routing key")
)

// Invocation is a parsed handler invocation.
type Invocation struct {
	URL     string   // raw first argument
	Key     string   // routing key (URL host segment)
	Payload string   // text after "<key>/", possibly empty
	Extra   []string // arguments after the URL, verbatim
}

// Parse validates args against scheme (without "://") and extracts the routing
// key and payload.
func Parse(scheme string, args []string) (*Invocation, error) {
	if len(args) == 0 {
		return nil, ErrNoArguments
	}

	raw := args[0]
	prefix := Prefix(scheme)
	if !strings.HasPrefix(raw, prefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, raw)
	}

	rest := raw[len(prefix):]
	end := strings.IndexAny(rest, ":/")
	if end < 0 {
		end = len(rest)
	}
	key := rest[:end]
	if key == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyKey, raw)
	}

	var payload string
	if end < len(rest) && rest[end] == '/' {
		payload = rest[end+1:]
	}

	return &Invocation{
		URL:     raw,
		Key:     key,
		Payload: payload,
		Extra:   append([]string(nil), args[1:]...),
	}, nil
}

// Prefix returns the literal every handled URL starts with.
func Prefix(scheme string) string {
	return scheme + "://"
}

// Syntax returns the usage line shown to users for scheme.
func Syntax(scheme string) string {
	return Prefix(scheme) + "<key>/ <args>"
}

// Args returns the argument vector for the target process: the payload's
// whitespace-separated fields followed by every extra argument as-is.
func (inv *Invocation) Args() []string {
	args := strings.Fields(inv.Payload)
	return append(args, inv.Extra...)
}

// CommandLine returns the flat argument string older handlers passed to the
// launcher: payload, one space, then each extra argument followed by a space.
// Arguments with embedded spaces are not quoted.
func (inv *Invocation) CommandLine() string {
	var b strings.Builder
	b.WriteString(inv.Payload)
	b.WriteByte(' ')
	for _, a := range inv.Extra {
		b.WriteString(a)
		b.WriteByte(' ')
	}
	return b.String()
}
