package api

import (
	"fmt"
	"strings"

	"finpulse/internal/common/errors"
)

// Route is the (resource path, HTTP verb) value the routing table is keyed
// by.
type Route struct {
	Resource string
	Verb     string
}

// Router maps routes to pre-constructed methods. The table is built once at
// startup and immutable afterwards; there is no wildcard or fallback
// routing.
type Router struct {
	methods map[Route]Method
}

func NewRouter() *Router {
	return &Router{methods: make(map[Route]Method)}
}

// Register adds an endpoint. Registering the same (resource, verb) twice is
// a programming error and panics at startup rather than shadowing silently.
func (r *Router) Register(resource, verb string, m Method) {
	route := Route{Resource: normalizePath(resource), Verb: strings.ToUpper(verb)}
	if _, exists := r.methods[route]; exists {
		panic(fmt.Sprintf("route already registered: %s %s", route.Verb, route.Resource))
	}
	r.methods[route] = m
}

// Resolve returns the method for a (path, verb) pair. An unmatched pair is
// NotFound("API method"), an Internal-class failure, since the upstream
// gateway should never forward unknown routes here.
func (r *Router) Resolve(path, verb string) (Method, error) {
	route := Route{Resource: normalizePath(path), Verb: strings.ToUpper(verb)}
	m, ok := r.methods[route]
	if !ok {
		return nil, errors.NewNotFound("API method")
	}
	return m, nil
}

// Routes returns every registered route.
func (r *Router) Routes() []Route {
	routes := make([]Route, 0, len(r.methods))
	for route := range r.methods {
		routes = append(routes, route)
	}
	return routes
}

func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}
	return path
}
