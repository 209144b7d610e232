// Package router decides, for an incoming request path, whether it is the
// echo endpoint or a static-file candidate. The original radix tree's
// :param/*catchAll machinery has no use here: the server only ever needs to
// tell two routes apart, so the router is a direct comparison against the
// registered echo path with everything else falling through to static
// files.
package router

import "github.com/hatchetline/echod/core/optimize"

// Route names which handler a request path resolves to.
type Route int

const (
	// Static serves path as a file under the document root.
	Static Route = iota
	// Echo renders the form-echo template.
	Echo
)

// Router holds the small set of fixed paths that resolve to the echo
// handler instead of falling through to static file serving.
type Router struct {
	echoPaths []string
}

// New creates a router that treats each of echoPaths as the echo endpoint.
// A typical server registers both "/" and "/index.html".
func New(echoPaths ...string) *Router {
	return &Router{echoPaths: echoPaths}
}

// Resolve classifies path as Echo or Static.
func (r *Router) Resolve(path string) Route {
	for _, p := range r.echoPaths {
		if optimize.ComparePathSIMD(path, p) {
			return Echo
		}
	}
	return Static
}
