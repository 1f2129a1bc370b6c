// Package doctypes holds the static catalog of attachment kinds that can be
// spliced into a template document.
package doctypes

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-json-experiment/json"
)

type DocType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`         // display name
	DefaultPage int    `json:"default_page"` // 1-based template page after which it is inserted by default
	After       string `json:"after,omitempty"`
}

// Catalog is immutable once built. Order matters: it breaks ties between
// insertions that land on the same template page.
type Catalog struct {
	types []DocType
	pos   map[string]int
}

var builtin = []DocType{
	{ID: "boq", Name: "BOQ", DefaultPage: 3},
	{ID: "served_equipment", Name: "Served Equipment", DefaultPage: 4},
	{ID: "io_points", Name: "I/O Points", DefaultPage: 5},
	{ID: "riser_diagram", Name: "Riser Diagram", DefaultPage: 6},
	{ID: "schematic_diagram", Name: "Schematic Diagram", DefaultPage: 7},
	{ID: "compliance_sheet", Name: "Compliance Sheet", DefaultPage: 8},
	{ID: "datasheets", Name: "Datasheets", DefaultPage: 9},
	{ID: "catalog", Name: "Catalog", DefaultPage: 10, After: "datasheets"},
}

var ErrEmptyCatalog = errors.New("doctypes: empty catalog")

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := New(builtin)
	if err != nil {
		panic(err) // builtin table is broken
	}
	return c
}

// New validates types and builds a Catalog from a copy of them.
// Ids must be unique and non-empty. Every After anchor must name another
// type in the catalog and anchors must not form a cycle.
func New(types []DocType) (*Catalog, error) {
	if len(types) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		types: make([]DocType, len(types)),
		pos:   make(map[string]int, len(types)),
	}
	copy(c.types, types)
	for i, t := range c.types {
		if t.ID == "" {
			return nil, fmt.Errorf("doctypes: entry %d has no id", i)
		}
		if _, dup := c.pos[t.ID]; dup {
			return nil, fmt.Errorf("doctypes: duplicate id %q", t.ID)
		}
		if t.Name == "" {
			c.types[i].Name = t.ID
		}
		c.pos[t.ID] = i
	}
	for _, t := range c.types {
		if t.After == "" {
			continue
		}
		if t.After == t.ID {
			return nil, fmt.Errorf("doctypes: %q cannot follow itself", t.ID)
		}
		if _, ok := c.pos[t.After]; !ok {
			return nil, fmt.Errorf("doctypes: %q follows unknown type %q", t.ID, t.After)
		}
	}
	// walk each anchor chain; a chain longer than the catalog loops
	for _, t := range c.types {
		cur, steps := t, 0
		for cur.After != "" {
			steps++
			if steps > len(c.types) {
				return nil, fmt.Errorf("doctypes: dependency cycle through %q", t.ID)
			}
			cur = c.types[c.pos[cur.After]]
		}
	}
	return c, nil
}

// Load reads a JSON array of doc types from path
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var types []DocType
	if err = json.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("doctypes: parse %s: %w", path, err)
	}
	return New(types)
}

// All returns a copy of the types in catalog order
func (c *Catalog) All() []DocType {
	out := make([]DocType, len(c.types))
	copy(out, c.types)
	return out
}

func (c *Catalog) Len() int {
	return len(c.types)
}

func (c *Catalog) Lookup(id string) (DocType, bool) {
	i, ok := c.pos[id]
	if !ok {
		return DocType{}, false
	}
	return c.types[i], true
}

// Position returns the 0-based catalog position of id, or -1
func (c *Catalog) Position(id string) int {
	i, ok := c.pos[id]
	if !ok {
		return -1
	}
	return i
}
