// Package doctor validates the handler settings and the application registry.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/mattjoyce/runapp/internal/config"
	"github.com/mattjoyce/runapp/internal/notify"
	"github.com/mattjoyce/runapp/internal/registry"
	"github.com/mattjoyce/runapp/internal/scheme"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Registry string  `json:"registry"`
	Apps     int     `json:"apps"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded handler configuration and the registry it points at.
type Doctor struct {
	cfg           *config.Config
	lookup        registry.LookupFunc
	schemeCommand func(name string) (string, error)
	goos          string
}

// New creates a Doctor for cfg using the process environment.
func New(cfg *config.Config) *Doctor {
	return &Doctor{
		cfg:           cfg,
		lookup:        os.LookupEnv,
		schemeCommand: scheme.Lookup,
		goos:          runtime.GOOS,
	}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true, Registry: d.cfg.RegistryPath()}

	d.validateIntegrity(r)
	if reg := d.loadRegistry(r); reg != nil {
		r.Apps = reg.Len()
		if reg.Len() == 0 {
			d.addWarning(r, "registry", "", "no applications are registered")
		}
		for i, e := range reg.Entries() {
			d.validateEntry(r, i, e)
		}
	}
	d.warnJournal(r)
	d.warnScheme(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateIntegrity checks the registry against .checksums when one exists.
func (d *Doctor) validateIntegrity(r *Result) {
	enabled, err := config.VerifyRegistry(r.Registry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Reported by loadRegistry.
			return
		}
		d.addError(r, "integrity", config.ChecksumsFileName, err.Error())
		return
	}
	if !enabled {
		d.addWarning(r, "integrity", config.ChecksumsFileName,
			"registry is not locked (run 'runapp registry lock')")
	}
}

func (d *Doctor) loadRegistry(r *Result) *registry.Registry {
	reg, err := registry.Load(r.Registry)
	if err != nil {
		var perr *registry.ParseError
		switch {
		case errors.Is(err, registry.ErrNotFound):
			d.addError(r, "registry", "", "registry file not found: "+r.Registry)
		case errors.As(err, &perr):
			d.addError(r, "registry", "", perr.Msg)
		default:
			d.addError(r, "registry", "", err.Error())
		}
		return nil
	}
	return reg
}

// validateEntry checks that one registered application can be reached and launched.
func (d *Doctor) validateEntry(r *Result, i int, e registry.Entry) {
	field := fmt.Sprintf("App[%d] %s", i+1, e.Key)

	if strings.ContainsAny(e.Key, ":/") || strings.IndexFunc(e.Key, isSpace) >= 0 {
		d.addError(r, "registry", field,
			"key contains ':', '/' or whitespace and can never match a URL")
	}

	for _, name := range registry.Unresolved(e.Target, d.lookup) {
		d.addWarning(r, "env", field, fmt.Sprintf("target references undefined variable %s", name))
	}
	for _, name := range registry.Unresolved(e.Args, d.lookup) {
		d.addWarning(r, "env", field, fmt.Sprintf("args reference undefined variable %s", name))
	}

	target := registry.Expand(e.Target, d.lookup)
	info, err := os.Stat(target)
	switch {
	case err != nil:
		d.addWarning(r, "target", field, "target does not exist: "+target)
	case info.IsDir():
		d.addWarning(r, "target", field, "target is a directory: "+target)
	case d.goos != "windows" && info.Mode().Perm()&0o111 == 0:
		d.addWarning(r, "target", field, "target is not executable: "+target)
	}

	if e.Args != "" && !d.cfg.Launch.UseEntryArgs {
		d.addWarning(r, "launch", field,
			"args template is ignored because launch.use_entry_args is false")
	}
}

// warnJournal reports a journal directory that cannot be written.
func (d *Doctor) warnJournal(r *Result) {
	if d.cfg.Journal.Path == "" {
		return
	}
	dir := d.cfg.Journal.Path
	if i := strings.LastIndexAny(dir, `/\`); i >= 0 {
		dir = dir[:i]
	} else {
		dir = "."
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		d.addWarning(r, "journal", "journal.path", "journal directory does not exist: "+dir)
	}
}

// warnScheme reports a scheme the operating system will not route to any handler.
func (d *Doctor) warnScheme(r *Result) {
	name := d.cfg.Service.Scheme
	_, err := d.schemeCommand(name)
	switch {
	case err == nil, errors.Is(err, scheme.ErrUnsupported):
	case errors.Is(err, scheme.ErrNotRegistered):
		d.addWarning(r, "scheme", "service.scheme",
			fmt.Sprintf("%s:// is not registered for this user (run 'runapp register')", name))
	default:
		d.addWarning(r, "scheme", "service.scheme", err.Error())
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result, theme notify.Theme) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s (%d app(s))\n", theme.Header.Render("Registry:"), r.Registry, r.Apps)

	switch {
	case r.Valid && len(r.Warnings) == 0:
		b.WriteString(theme.OK.Render("Configuration valid.") + "\n")
		return b.String()
	case r.Valid:
		b.WriteString(theme.Warn.Render(fmt.Sprintf("Configuration valid (%d warning(s))", len(r.Warnings))) + "\n")
	default:
		b.WriteString(theme.Error.Render(fmt.Sprintf("Configuration invalid (%d error(s), %d warning(s))",
			len(r.Errors), len(r.Warnings))) + "\n")
	}

	for _, e := range r.Errors {
		writeIssue(&b, theme.Error.Render("ERROR"), e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, theme.Warn.Render("WARN "), w)
	}

	return b.String()
}

func writeIssue(b *strings.Builder, label string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
	} else {
		fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
	}
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
