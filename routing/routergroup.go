package routing

import (
	"fmt"
	"net/http"
	"strings"
)

type RouteGroup struct {
	Router          // [Embedded Interface]
	Prefix          string
	HandlerWrappers []HandlerWrapper // Group Handler Wrappers
}

// Ensure RouteGroup implements Router
var _ Router = (*RouteGroup)(nil)

// FullPattern joins the group prefix into subpattern.
// "<method> <subpath>" becomes "<method> <prefix><subpath>"
func (g *RouteGroup) FullPattern(subpattern string) string {
	if method, subpath, ok := strings.Cut(subpattern, " "); ok {
		return method + " " + g.Prefix + subpath
	}
	return g.Prefix + subpattern
}

// Handle registers a route pattern
// Group wrappers run before the route's own wrappers, outermost first:
//
//	grpWrapr1 ( ... grpWraprN ( hndWrapr1 ( ... hndWraprN ( handler ) ) ) )
func (g *RouteGroup) Handle(subpattern string, handler http.Handler, handlerWrappers ...HandlerWrapper) {
	fullPattern := g.FullPattern(subpattern)
	if strings.Contains(fullPattern, "//") {
		panic(fmt.Sprintf("routing: can't register pattern %s", fullPattern))
	}
	wrapped := wrap(wrap(handler, handlerWrappers), g.HandlerWrappers)
	g.Router.Handle(fullPattern, wrapped)
}

func (g *RouteGroup) HandleFunc(subpattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper) {
	g.Handle(subpattern, http.HandlerFunc(handleFunc), handlerWrappers...)
}

// Group on *RouteGroup makes a Subgroup
//
//	router.Group("/api/", func(api *RouteGroup) {        // RouteGroup for "/api/..."
//	  api.Handle("GET doc-types", docTypesHandler)       // "GET /api/doc-types"
//	}
func (g *RouteGroup) Group(subPrefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup {
	wrappers := make([]HandlerWrapper, 0, len(g.HandlerWrappers)+len(handlerWrappers))
	wrappers = append(wrappers, g.HandlerWrappers...)
	wrappers = append(wrappers, handlerWrappers...)
	subg := &RouteGroup{
		Router:          g.Router,             // same router
		Prefix:          g.Prefix + subPrefix, // extended prefix
		HandlerWrappers: wrappers,
	}

	batch(subg)

	return subg
}
