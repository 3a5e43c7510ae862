package apidec

import (
	"context"
	"net/http"
	"strconv"
)

// Request holds all data needed by handler callbacks. It embeds context and
// the underlying HTTP request for full access.
//
// Query and Body are fully validated before the handler runs; Params holds
// raw path parameter values as matched by the router.
type Request[Q, B any] struct {
	context.Context // Embedded for deadline, cancellation, values
	*http.Request   // Embedded for direct access when needed (use sparingly)
	Params          *Params
	Query           Q
	Body            B
	Identity        Identity // nil for unauthenticated requests
}

// Params holds extracted path parameters.
type Params struct {
	Path map[string]string
}

// Int returns the named path parameter as an integer. Routes declared with
// an int converter only match numeric values, so the conversion cannot fail
// for such parameters; for anything else the zero value is returned.
func (p *Params) Int(name string) int {
	n, _ := strconv.Atoi(p.Path[name])
	return n
}
