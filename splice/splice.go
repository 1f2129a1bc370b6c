// Package splice computes the page order of a merged document: a template
// page sequence with attachment page sequences spliced in after given
// template pages.
//
// Pages are opaque. Splice never looks inside them, it only reorders
// references, so the same code serves decoded PDF pages and plain integers
// in tests.
package splice

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/zeptools/pdf-joiner/doctypes"
)

// Request asks for Pages to be inserted after template page Index (1-based).
// Index is kept raw as entered by the caller and parsed by Resolve.
type Request[P any] struct {
	DocTypeID string
	Pages     []P
	Index     string
}

// SortKey orders resolved insertions. Keys compare field by field.
//
//	Index: template page count after which the insertion lands
//	Group: catalog position of the root of the insertion's dependency chain
//	Depth: number of After links between the insertion and that root
//	Pos:   catalog position of the insertion's own doc type
//
// An insertion whose anchor is also requested inherits the anchor's Index
// and Group with Depth+1, so it sorts right behind the anchor and ahead of
// anything else at that index that comes later in the catalog.
type SortKey struct {
	Index int
	Group int
	Depth int
	Pos   int
}

func (k SortKey) Compare(o SortKey) int {
	switch {
	case k.Index != o.Index:
		return cmp.Compare(k.Index, o.Index)
	case k.Group != o.Group:
		return cmp.Compare(k.Group, o.Group)
	case k.Depth != o.Depth:
		return cmp.Compare(k.Depth, o.Depth)
	default:
		return cmp.Compare(k.Pos, o.Pos)
	}
}

// Resolved is a validated request with its parsed index and sort key.
type Resolved[P any] struct {
	Request[P]
	Requested int // parsed Index as entered
	Key       SortKey
}

// Resolve validates reqs against cat, parses their indices and returns them
// in splice order. Indices are parsed in catalog order so the first invalid
// one reported is deterministic. An integer index too large for int clamps
// to math.MaxInt or math.MinInt by sign.
func Resolve[P any](cat *doctypes.Catalog, reqs []Request[P]) ([]Resolved[P], error) {
	resolved := make([]Resolved[P], 0, len(reqs))
	seen := make(map[string]struct{}, len(reqs))
	for _, req := range reqs {
		pos := cat.Position(req.DocTypeID)
		if pos < 0 {
			return nil, &UnknownDocTypeError{DocTypeID: req.DocTypeID}
		}
		if _, dup := seen[req.DocTypeID]; dup {
			return nil, &DuplicateRequestError{DocTypeID: req.DocTypeID}
		}
		seen[req.DocTypeID] = struct{}{}
		resolved = append(resolved, Resolved[P]{Request: req, Key: SortKey{Pos: pos}})
	}
	slices.SortFunc(resolved, func(a, b Resolved[P]) int {
		return cmp.Compare(a.Key.Pos, b.Key.Pos)
	})

	byID := make(map[string]int, len(resolved))
	for i := range resolved {
		r := &resolved[i]
		n, err := parseIndex(r.Index)
		if err != nil {
			dt, _ := cat.Lookup(r.DocTypeID)
			return nil, &InvalidIndexError{DocTypeID: dt.ID, Name: dt.Name, Value: r.Index, Err: err}
		}
		r.Requested = n
		byID[r.DocTypeID] = i
	}

	// anchors first: memoized walk up the After chain
	done := make([]bool, len(resolved))
	var keyOf func(i int) SortKey
	keyOf = func(i int) SortKey {
		r := &resolved[i]
		if done[i] {
			return r.Key
		}
		r.Key = SortKey{Index: r.Requested, Group: r.Key.Pos, Pos: r.Key.Pos}
		dt, _ := cat.Lookup(r.DocTypeID)
		if j, ok := byID[dt.After]; ok && dt.After != "" {
			anchor := keyOf(j)
			r.Key.Index = anchor.Index
			r.Key.Group = anchor.Group
			r.Key.Depth = anchor.Depth + 1
		}
		done[i] = true
		return r.Key
	}
	for i := range resolved {
		keyOf(i)
	}

	slices.SortStableFunc(resolved, func(a, b Resolved[P]) int {
		return a.Key.Compare(b.Key)
	})
	return resolved, nil
}

// parseIndex parses a whole number. Out of int range is not an error: such an
// index still lands before or after the template.
func parseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(s, "-") {
			return math.MinInt, nil
		}
		return math.MaxInt, nil
	}
	return n, err
}

// Splice returns template with every request's pages inserted. The result
// holds len(template) plus the sum of all request page counts. Out-of-range
// indices are clamped to the template bounds.
func Splice[P any](cat *doctypes.Catalog, template []P, reqs []Request[P]) ([]P, error) {
	resolved, err := Resolve(cat, reqs)
	if err != nil {
		return nil, err
	}
	total := len(template)
	for _, r := range resolved {
		total += len(r.Pages)
	}

	out := make([]P, 0, total)
	cursor := 0
	for _, r := range resolved {
		bound := min(max(r.Key.Index, cursor), len(template))
		out = append(out, template[cursor:bound]...)
		cursor = bound
		out = append(out, r.Pages...)
	}
	return append(out, template[cursor:]...), nil
}
