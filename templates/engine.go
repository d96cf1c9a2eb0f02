// templates/engine.go
package templates

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrNotFound is returned when no compiled page or snippet has the name.
var ErrNotFound = errors.New("template not found")

// SharedSet is the name of the set holding the layout and partials every
// page can call.
const SharedSet = "shared"

// Set is one group of template files loaded from an fs.FS.
type Set struct {
	Name     string
	FS       fs.FS
	Patterns []string
}

// Engine holds one compiled template per page: a clone of the shared set
// plus every file of the page's own set. Only the page's file keeps its
// "content" block, so sibling pages cannot shadow each other.
type Engine struct {
	mu     sync.RWMutex
	funcs  template.FuncMap
	base   *template.Template
	byName map[string]*template.Template
	logger *zap.Logger
}

// New returns an empty engine using Funcs plus extra.
func New(logger *zap.Logger, extra template.FuncMap) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcs := Funcs()
	for k, v := range extra {
		funcs[k] = v
	}
	return &Engine{
		funcs:  funcs,
		byName: map[string]*template.Template{},
		logger: logger,
	}
}

// Boot compiles sets. Exactly one must be named SharedSet.
func (e *Engine) Boot(sets ...Set) error {
	var (
		shared *Set
		pages  []Set
	)
	for i := range sets {
		if sets[i].Name == SharedSet {
			shared = &sets[i]
			continue
		}
		pages = append(pages, sets[i])
	}
	if shared == nil {
		return fmt.Errorf("templates: %q set not provided", SharedSet)
	}

	base := template.New("root").Funcs(e.funcs)
	files, err := globAll(shared.FS, shared.Patterns)
	if err != nil {
		return fmt.Errorf("glob shared: %w", err)
	}
	for _, p := range files {
		src, err := fs.ReadFile(shared.FS, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if _, err := base.Parse(string(src)); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
	}

	e.mu.Lock()
	e.base = base
	e.mu.Unlock()

	for _, s := range pages {
		if err := e.compileSet(s); err != nil {
			return fmt.Errorf("compile set %q: %w", s.Name, err)
		}
	}
	return nil
}

func (e *Engine) compileSet(s Set) error {
	files, err := globAll(s.FS, s.Patterns)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		e.logger.Warn("no templates matched", zap.String("set", s.Name))
		return nil
	}

	sources := make(map[string]string, len(files))
	for _, p := range files {
		b, err := fs.ReadFile(s.FS, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		sources[p] = string(b)
	}

	for _, page := range files {
		clone, err := e.base.Clone()
		if err != nil {
			return fmt.Errorf("clone base: %w", err)
		}
		for _, p := range files {
			text := sources[p]
			if p != page {
				text = reContentDefine.ReplaceAllString(text, `{{ define "`+ignoredContentName(p)+`" }}`)
			}
			if _, err := clone.Funcs(e.funcs).Parse(text); err != nil {
				return fmt.Errorf("parse %s (for %s): %w", p, page, err)
			}
		}

		owned := defineNames(sources[page])
		e.mu.Lock()
		for _, name := range owned {
			if name != "content" {
				e.byName[name] = clone
			}
		}
		e.mu.Unlock()
		e.logger.Debug("template page compiled",
			zap.String("set", s.Name), zap.String("page", path.Base(page)))
	}
	return nil
}

var (
	reContentDefine = regexp.MustCompile(`{{-?\s*define\s+"content"\s*-?}}`)
	reDefineName    = regexp.MustCompile(`{{-?\s*define\s+"([^"]+)"`)
)

func ignoredContentName(p string) string {
	base := path.Base(p)
	return "_content_ignored_" + strings.TrimSuffix(base, path.Ext(base))
}

func defineNames(src string) []string {
	var out []string
	for _, m := range reDefineName.FindAllStringSubmatch(src, -1) {
		out = append(out, m[1])
	}
	return out
}

func globAll(fsys fs.FS, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pat := range patterns {
		matches, err := fs.Glob(fsys, pat)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Execute renders the template name (entry is the page whose clone holds
// it) into a buffer so a failed render never leaves a partial response.
func (e *Engine) Execute(entry, name string, data any) ([]byte, error) {
	e.mu.RLock()
	t, ok := e.byName[entry]
	if !ok && e.base != nil && e.base.Lookup(entry) != nil {
		t, ok = e.base, true
	}
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, entry)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Has reports whether name was compiled as a page, a page partial or a
// shared partial.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.byName[name]; ok {
		return true
	}
	return e.base != nil && e.base.Lookup(name) != nil
}
