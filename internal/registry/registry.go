// Package registry loads RegisteredApps.xml, the table mapping URL routing keys
// to the programs the handler may launch.
//
//	<RunApp>
//	  <App key="opticks" target="%ProgramFiles%/Opticks/opticks.exe" args="-nosplash"/>
//	</RunApp>
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// RootElement is the document element every registry must have.
const RootElement = "RunApp"

var (
	rootExpr = xpath.MustCompile("/*")
	appsExpr = xpath.MustCompile("/RunApp/App")
)

// ErrNotFound is returned by Load when the registry file does not exist.
var ErrNotFound = errors.New("registry file not found")

// ParseError reports a registry file that could not be read as a valid registry.
type ParseError struct {
	Path string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

// Entry is one registered application.
type Entry struct {
	Key    string `json:"key"`
	Target string `json:"target"`
	Args   string `json:"args,omitempty"`
}

// Registry is an immutable, loaded RegisteredApps.xml.
type Registry struct {
	path    string
	entries []Entry
	index   map[string]int
}

// Load reads and validates the registry at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &ParseError{Path: path, Msg: err.Error()}
	}
	return Parse(path, data)
}

// Parse builds a Registry from XML content. path is only used in errors.
func Parse(path string, data []byte) (*Registry, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Path: path, Msg: err.Error()}
	}

	roots := xmlquery.QuerySelectorAll(doc, rootExpr)
	switch {
	case len(roots) == 0:
		return nil, &ParseError{Path: path, Msg: "root element is missing"}
	case len(roots) > 1:
		return nil, &ParseError{Path: path, Msg: fmt.Sprintf("multiple root elements (<%s> after <%s>)", roots[1].Data, roots[0].Data)}
	}
	root := roots[0]
	if root.Data != RootElement {
		return nil, &ParseError{Path: path, Msg: fmt.Sprintf("unexpected root element <%s>, expected <%s>", root.Data, RootElement)}
	}

	reg := &Registry{
		path:  path,
		index: make(map[string]int),
	}
	for i, node := range xmlquery.QuerySelectorAll(doc, appsExpr) {
		if name, dup := repeatedAttr(node); dup {
			return nil, &ParseError{Path: path, Msg: fmt.Sprintf("App[%d]: duplicate attribute %q", i+1, name)}
		}
		key, ok := attr(node, "key")
		if !ok || key == "" {
			return nil, &ParseError{Path: path, Msg: fmt.Sprintf("App[%d]: key attribute is required", i+1)}
		}
		target, ok := attr(node, "target")
		if !ok || target == "" {
			return nil, &ParseError{Path: path, Msg: fmt.Sprintf("App[%d] (%s): target attribute is required", i+1, key)}
		}
		if _, dup := reg.index[key]; dup {
			return nil, &ParseError{Path: path, Msg: fmt.Sprintf("App[%d]: duplicate key %q", i+1, key)}
		}
		args, _ := attr(node, "args")

		reg.index[key] = len(reg.entries)
		reg.entries = append(reg.entries, Entry{Key: key, Target: target, Args: args})
	}

	return reg, nil
}

func repeatedAttr(n *xmlquery.Node) (string, bool) {
	seen := make(map[string]bool, len(n.Attr))
	for _, a := range n.Attr {
		if seen[a.Name.Local] {
			return a.Name.Local, true
		}
		seen[a.Name.Local] = true
	}
	return "", false
}

func attr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Path returns the file the registry was loaded from.
func (r *Registry) Path() string { return r.path }

// Lookup returns the entry registered under key. Matching is exact and case-sensitive.
func (r *Registry) Lookup(key string) (Entry, bool) {
	i, ok := r.index[key]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns all entries in document order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of registered applications.
func (r *Registry) Len() int { return len(r.entries) }
