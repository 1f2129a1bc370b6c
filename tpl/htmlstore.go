package tpl

import (
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"os"
	"path"
	"strings"
	"unicode/utf8"
)

const FileSuffix = ".gohtml"

type HTMLTemplateStore struct {
	Base     map[string]*template.Template // each file → one template
	Combined map[string]*template.Template // composed templates
	Funcs    template.FuncMap              // set before loading
	sources  map[string]string
}

func NewHTMLTemplateStore() *HTMLTemplateStore {
	return &HTMLTemplateStore{
		Base:     make(map[string]*template.Template),
		Combined: make(map[string]*template.Template),
		Funcs:    template.FuncMap{},
		sources:  make(map[string]string),
	}
}

// LoadBaseTemplates loads every *.gohtml below tplRoot
func (s *HTMLTemplateStore) LoadBaseTemplates(tplRoot string) error {
	if err := s.LoadBaseTemplatesFS(os.DirFS(tplRoot)); err != nil {
		return err
	}
	// Summary log
	log.Printf("[INFO][TEMPLATE] Loaded %d templates from %s", len(s.Base), tplRoot)
	return nil
}

// LoadBaseTemplatesFS walks fsys. A template's key is its slash path
// relative to the fs root without the suffix, e.g. "pages/index".
func (s *HTMLTemplateStore) LoadBaseTemplatesFS(fsys fs.FS) error {
	return fs.WalkDir( // Pre-order Depth-first Traversal
		fsys,
		".",
		func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			// Skip Hidden Files & Hidden Directories
			if p != "." && strings.HasPrefix(name, ".") {
				if d.IsDir() {
					return fs.SkipDir // skip the whole directory: Do NOT walk into this directory
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(p, FileSuffix) {
				return nil
			}
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return err
			}
			if !utf8.Valid(data) {
				return fmt.Errorf("file %s is not valid UTF-8", p)
			}
			key := strings.TrimSuffix(path.Clean(p), FileSuffix)
			if _, exists := s.Base[key]; exists {
				return fmt.Errorf("duplicate template key detected: %s (file=%s)", key, p)
			}
			t, err := template.New(key).Funcs(s.Funcs).Parse(string(data))
			if err != nil {
				return fmt.Errorf("parse error in %s: %w", p, err)
			}
			s.Base[key] = t
			s.sources[key] = string(data)
			return nil
		},
	)
}

// Combine parses the sources of baseKeys, in order, into one template set
// stored as Combined[key]. Executing it runs the first base, which can call
// {{template}} blocks defined by the others.
func (s *HTMLTemplateStore) Combine(key string, baseKeys ...string) error {
	if len(baseKeys) == 0 {
		return fmt.Errorf("combine %s: no base templates", key)
	}
	var t *template.Template
	for _, bk := range baseKeys {
		src, ok := s.sources[bk]
		if !ok {
			return fmt.Errorf("combine %s: base template %q not loaded", key, bk)
		}
		if t == nil {
			t = template.New(bk).Funcs(s.Funcs)
		} else {
			t = t.New(bk)
		}
		if _, err := t.Parse(src); err != nil {
			return fmt.Errorf("combine %s: %s: %w", key, bk, err)
		}
	}
	s.Combined[key] = t.Lookup(baseKeys[0])
	return nil
}

// Get prefers a combined template over a base one
func (s *HTMLTemplateStore) Get(key string) (*template.Template, bool) {
	if t, ok := s.Combined[key]; ok {
		return t, true
	}
	t, ok := s.Base[key]
	return t, ok
}
