package dispatch

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch failure.
type Kind string

const (
	KindUsage          Kind = "usage"
	KindConfigNotFound Kind = "config_not_found"
	KindConfigParse    Kind = "config_parse"
	KindKeyNotFound    Kind = "key_not_found"
	KindTargetNotFound Kind = "target_not_found"
	KindLaunch         Kind = "launch"
	KindIntegrity      Kind = "integrity"
)

// Error is implemented by every failure Dispatch returns.
type Error interface {
	error
	Kind() Kind
}

// UsageError reasons.
const (
	ReasonSyntax        = "Syntax Error"
	ReasonInvalidPrefix = "Invalid Prefix"
	ReasonMissingKey    = "Missing Key"
)

// UsageError reports a missing or malformed URL argument.
type UsageError struct {
	Reason   string
	Expected string // usage line, e.g. "runapp://<key>/ <args>"
	Received string // first argument; unused for ReasonSyntax
}

func (e *UsageError) Kind() Kind { return KindUsage }

func (e *UsageError) Error() string {
	if e.Reason == ReasonSyntax {
		return fmt.Sprintf("%s:\nExpected: %s\n", e.Reason, e.Expected)
	}
	return fmt.Sprintf("%s:\nExpected: %s\nReceived: %s", e.Reason, e.Expected, e.Received)
}

// ConfigNotFoundError reports a missing RegisteredApps.xml.
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Kind() Kind { return KindConfigNotFound }

func (e *ConfigNotFoundError) Error() string {
	return "Could not find configuration file.\n" + e.Path
}

// ConfigParseError reports a RegisteredApps.xml that could not be parsed.
type ConfigParseError struct {
	Path string
	Msg  string // parser text, verbatim
}

func (e *ConfigParseError) Kind() Kind { return KindConfigParse }

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("Error loading the XML config file.\n%s\n%s", e.Path, e.Msg)
}

// KeyNotFoundError reports a routing key with no registry entry.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Kind() Kind { return KindKeyNotFound }

func (e *KeyNotFoundError) Error() string {
	return "Key not found in registered applications: " + e.Key
}

// TargetNotFoundError reports a resolved target path that does not exist.
type TargetNotFoundError struct {
	Key    string
	Target string // after environment expansion
}

func (e *TargetNotFoundError) Kind() Kind { return KindTargetNotFound }

func (e *TargetNotFoundError) Error() string {
	return "Could not find target application.\n" + e.Target
}

// LaunchError reports a target that exists but could not be started.
type LaunchError struct {
	Target string
	Err    error
}

func (e *LaunchError) Kind() Kind { return KindLaunch }

func (e *LaunchError) Error() string {
	return fmt.Sprintf("Could not start target application.\n%s\n%v", e.Target, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// IntegrityError reports a registry that does not match its .checksums manifest.
type IntegrityError struct {
	Path string
	Err  error
}

func (e *IntegrityError) Kind() Kind { return KindIntegrity }

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("Registry integrity check failed.\n%s\n%v", e.Path, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// exitCodes maps failure kinds to process exit codes. 1 is left for
// failures outside the dispatch pipeline (bad handler.yaml, internal errors).
var exitCodes = map[Kind]int{
	KindUsage:          2,
	KindConfigNotFound: 3,
	KindConfigParse:    4,
	KindKeyNotFound:    5,
	KindTargetNotFound: 6,
	KindLaunch:         7,
	KindIntegrity:      8,
}

// ExitCode returns the process exit code for err: 0 for nil, the kind's code
// for dispatch errors, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var derr Error
	if errors.As(err, &derr) {
		if code, ok := exitCodes[derr.Kind()]; ok {
			return code
		}
	}
	return 1
}

// KindOf returns the failure kind of err, or "" when err is not a dispatch error.
func KindOf(err error) Kind {
	var derr Error
	if errors.As(err, &derr) {
		return derr.Kind()
	}
	return ""
}
