package apidec

import (
	"context"
	"net/http"
	"reflect"
)

// Endpoint represents a registered route handler with metadata. It is
// implemented by Handler; the unexported method seals the interface.
type Endpoint interface {
	// Process handles the HTTP request and writes the response.
	// Returns the HTTP status code written and any error encountered.
	Process(ctx context.Context, r *http.Request, w http.ResponseWriter) (int, error)

	// Spec returns the declarative descriptor for this endpoint.
	Spec() EndpointSpec

	// bind attaches the global configuration at mount time.
	bind(cfg *Config)
}

// operationMeta is the adapter metadata the spec generator reads from an
// endpoint. It exposes the same build-time artifacts the request pipeline
// uses, so generated schemas and runtime behavior cannot drift apart.
type operationMeta struct {
	query *queryModel
	body  *bodyAdapter // nil when the endpoint takes no body
	out   reflect.Type // nil when the response is a raw pass-through
}

// metadataCarrier is implemented by endpoints that expose adapter metadata.
// Routes whose handler does not carry it are skipped by the generator.
type metadataCarrier interface {
	metadata() operationMeta
}
