package registry

import (
	"os"
	"regexp"
	"strings"
)

// envRefPattern matches %VAR% (Windows), ${VAR} and $VAR references.
var envRefPattern = regexp.MustCompile(`%([^%\s=]+)%|\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// LookupFunc resolves an environment variable.
type LookupFunc func(name string) (string, bool)

// ExpandEnv replaces environment references in s using the process environment.
// References to undefined variables are left as-is.
func ExpandEnv(s string) string {
	return Expand(s, os.LookupEnv)
}

// Expand replaces environment references in s using lookup.
func Expand(s string, lookup LookupFunc) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		if value, ok := lookup(refName(match)); ok {
			return value
		}
		return match
	})
}

// Unresolved returns the names of references in s that lookup cannot resolve.
func Unresolved(s string, lookup LookupFunc) []string {
	var names []string
	for _, match := range envRefPattern.FindAllString(s, -1) {
		name := refName(match)
		if _, ok := lookup(name); !ok {
			names = append(names, name)
		}
	}
	return names
}

func refName(match string) string {
	sub := envRefPattern.FindStringSubmatch(match)
	for _, name := range sub[1:] {
		if name != "" {
			return name
		}
	}
	return ""
}

// ResolvedTarget returns the entry's target with environment references expanded.
func (e Entry) ResolvedTarget() string {
	return ExpandEnv(e.Target)
}

// TemplateArgs returns the entry's args template, expanded and split on whitespace.
func (e Entry) TemplateArgs() []string {
	return strings.Fields(ExpandEnv(e.Args))
}
