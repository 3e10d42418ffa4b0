package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sync"
)

var errNoTemplates = errors.New("no templates loaded")

// templateSet holds the parsed page templates. Reload swaps the whole set,
// so a request always renders from one consistent parse.
type templateSet struct {
	fsys fs.FS

	mu   sync.RWMutex
	tmpl *template.Template
}

func newTemplateSet(fsys fs.FS) *templateSet {
	return &templateSet{fsys: fsys}
}

// Reload parses every *.html file in the set's root.
// On failure the previously loaded templates stay active.
func (ts *templateSet) Reload() error {
	tmpl, err := template.ParseFS(ts.fsys, "*.html")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	ts.mu.Lock()
	ts.tmpl = tmpl
	ts.mu.Unlock()
	return nil
}

// Render executes the named template into w
func (ts *templateSet) Render(w io.Writer, name string, data any) error {
	ts.mu.RLock()
	tmpl := ts.tmpl
	ts.mu.RUnlock()

	if tmpl == nil {
		return errNoTemplates
	}
	t := tmpl.Lookup(name)
	if t == nil {
		return fmt.Errorf("template %q not found", name)
	}
	return t.Execute(w, data)
}
