package apidec

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type routeKind int

const (
	routeEndpoint routeKind = iota
	routeHTTP
	routeRegex
	routeInclude
)

// route is one entry in a Routes tree.
type route struct {
	kind     routeKind
	pattern  string
	endpoint Endpoint
	handler  http.Handler
	child    *Routes
}

// Routes is a named tree of URL patterns. The name identifies the namespace
// for schema grouping and for namespace-level exclusion. Patterns use
// placeholder syntax: <int:id>, <str:name>, <slug:title>.
type Routes struct {
	name    string
	entries []route
}

// NewRoutes creates an empty route tree with the given namespace name.
func NewRoutes(name string) *Routes {
	return &Routes{name: name}
}

// Name returns the namespace name.
func (rt *Routes) Name() string {
	return rt.name
}

// Path registers a typed endpoint at the given pattern.
func (rt *Routes) Path(pattern string, endpoint Endpoint) *Routes {
	rt.entries = append(rt.entries, route{kind: routeEndpoint, pattern: pattern, endpoint: endpoint})
	return rt
}

// Handle registers a plain http.Handler. It is dispatched normally but
// carries no metadata, so schema generation skips it.
func (rt *Routes) Handle(pattern string, handler http.Handler) *Routes {
	rt.entries = append(rt.entries, route{kind: routeHTTP, pattern: pattern, handler: handler})
	return rt
}

// Regex registers a typed endpoint at a raw pattern with inline regular
// expressions (for example "/items/{ref:[a-z]{3}[0-9]+}"). Regex routes
// dispatch normally but cannot be translated to path templates, so schema
// generation skips them.
func (rt *Routes) Regex(pattern string, endpoint Endpoint) *Routes {
	rt.entries = append(rt.entries, route{kind: routeRegex, pattern: pattern, endpoint: endpoint})
	return rt
}

// Include mounts a child tree under a prefix.
func (rt *Routes) Include(prefix string, child *Routes) *Routes {
	rt.entries = append(rt.entries, route{kind: routeInclude, pattern: prefix, child: child})
	return rt
}

// resolvedRoute is one dispatchable (pattern, target) pair with the full
// URL and owning namespace attached.
type resolvedRoute struct {
	url       string
	namespace string
	kind      routeKind
	endpoint  Endpoint
	handler   http.Handler
}

// resolveRoutes flattens a route tree into dispatch order. Subtrees whose
// namespace name appears in excluded are dropped entirely. The traversal
// uses an explicit work list rather than recursion so arbitrarily deep
// namespace nesting cannot exhaust the stack.
func resolveRoutes(root *Routes, excluded map[string]bool) []resolvedRoute {
	type frame struct {
		routes *Routes
		prefix string
	}

	var resolved []resolvedRoute
	work := []frame{{routes: root, prefix: ""}}
	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		if excluded[f.routes.name] {
			continue
		}

		for _, entry := range f.routes.entries {
			url := joinPattern(f.prefix, entry.pattern)
			if entry.kind == routeInclude {
				work = append(work, frame{routes: entry.child, prefix: url})
				continue
			}
			resolved = append(resolved, resolvedRoute{
				url:       url,
				namespace: f.routes.name,
				kind:      entry.kind,
				endpoint:  entry.endpoint,
				handler:   entry.handler,
			})
		}
	}
	return resolved
}

func joinPattern(prefix, pattern string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return prefix + pattern
}

// safeMethods never carry state-changing side effects, so their CSRF
// setting is irrelevant to the agreement check.
var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// methodRouter fans one URL out to several endpoints by HTTP verb.
type methodRouter struct {
	endpoints map[string]Endpoint
	allow     string
}

// MethodRouter builds an endpoint that dispatches by request method.
// Map keys are HTTP verbs and must match each endpoint's own method.
// CSRF middleware wraps the whole URL, so every state-changing endpoint in
// the group must agree on its CSRF-exemption setting; a mismatch panics.
func MethodRouter(endpoints map[string]Endpoint) Endpoint {
	if len(endpoints) == 0 {
		panic("apidec: MethodRouter requires at least one endpoint")
	}

	verbs := make([]string, 0, len(endpoints))
	var exempt, seen bool
	for method, endpoint := range endpoints {
		spec := endpoint.Spec()
		if spec.Method != method {
			panic(fmt.Sprintf("apidec: MethodRouter key %q does not match endpoint %q method %q",
				method, spec.Name, spec.Method))
		}
		verbs = append(verbs, method)

		if safeMethods[method] {
			continue
		}
		if seen && spec.CSRFExempt != exempt {
			panic("apidec: MethodRouter endpoints disagree on CSRF exemption")
		}
		exempt = spec.CSRFExempt
		seen = true
	}
	sort.Strings(verbs)

	return &methodRouter{
		endpoints: endpoints,
		allow:     strings.Join(verbs, ", "),
	}
}

// Process implements Endpoint.
func (m *methodRouter) Process(ctx context.Context, r *http.Request, w http.ResponseWriter) (int, error) {
	endpoint, ok := m.endpoints[r.Method]
	if !ok {
		w.Header().Set("Allow", m.allow)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"errors":["Method not allowed"]}`))
		return http.StatusMethodNotAllowed, nil
	}
	return endpoint.Process(ctx, r, w)
}

// Spec implements Endpoint. The group has no single method; callers that
// need per-method detail use children instead.
func (m *methodRouter) Spec() EndpointSpec {
	names := make([]string, 0, len(m.endpoints))
	for _, endpoint := range m.endpoints {
		names = append(names, endpoint.Spec().Name)
	}
	sort.Strings(names)
	return EndpointSpec{Name: strings.Join(names, "|")}
}

// bind implements Endpoint.
func (m *methodRouter) bind(cfg *Config) {
	for _, endpoint := range m.endpoints {
		endpoint.bind(cfg)
	}
}

// children exposes the per-method endpoints for schema generation.
func (m *methodRouter) children() map[string]Endpoint {
	return m.endpoints
}

// methodGroup is how the generator and engine detect a method router
// without depending on its concrete type.
type methodGroup interface {
	children() map[string]Endpoint
}
