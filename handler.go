package apidec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/zoobzio/capitan"
)

// Verbs accepted by NewHandler. Registration with anything else is a
// configuration error.
var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// bodyMethods are the verbs that conventionally carry a request body.
var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPatch: true,
	http.MethodPut:   true,
}

// Handler wraps a typed handler function with the adapters derived from its
// type parameters. Q declares the query parameters (NoQuery for none), B
// the body model (NoBody for none, a slice of structs for list bodies) and
// Out the response type (*Response for raw pass-through).
//
// All adapters are synthesized once here; request handling and schema
// generation both read them, which keeps the two consistent.
type Handler[Q, B, Out any] struct {
	fn func(*Request[Q, B]) (Out, error)

	name   string
	method string

	query   *queryModel
	body    *bodyAdapter
	encoder *responseEncoder
	outType reflect.Type

	summary        string
	description    string
	tags           []string
	responseStatus int
	loginRequired  *bool // nil means use the configured default
	atomic         *bool // nil means use the configured default
	authCheck      func(*http.Request) bool
	aliasEncoding  bool
	csrfExempt     bool
	errorHandler   func(*ValidationError) *Response

	cfg *Config // attached at mount time
}

// NewHandler creates a typed endpoint. Configuration mistakes (unsupported
// method, malformed query or body types) panic immediately: they are
// programming errors that must surface at process startup, not at request
// time.
func NewHandler[Q, B, Out any](name, method string, fn func(*Request[Q, B]) (Out, error)) *Handler[Q, B, Out] {
	if !allowedMethods[method] {
		panic(fmt.Sprintf("apidec: endpoint %q: unsupported HTTP method %q", name, method))
	}

	h := &Handler[Q, B, Out]{
		fn:             fn,
		name:           name,
		method:         method,
		responseStatus: http.StatusOK,
		outType:        reflect.TypeOf((*Out)(nil)).Elem(),
	}

	queryType := reflect.TypeOf((*Q)(nil)).Elem()
	query, err := buildQueryModel(queryType)
	if err != nil {
		panic(fmt.Sprintf("apidec: endpoint %q: %v", name, err))
	}
	h.query = query

	bodyType := reflect.TypeOf((*B)(nil)).Elem()
	if bodyType != noBodyType {
		body, err := newBodyAdapter(bodyType)
		if err != nil {
			panic(fmt.Sprintf("apidec: endpoint %q: %v", name, err))
		}
		h.body = body
	}

	h.encoder = newResponseEncoder(h.outType)
	return h
}

// WithSummary sets the OpenAPI summary.
func (h *Handler[Q, B, Out]) WithSummary(summary string) *Handler[Q, B, Out] {
	h.summary = summary
	return h
}

// WithDescription sets the OpenAPI description.
func (h *Handler[Q, B, Out]) WithDescription(desc string) *Handler[Q, B, Out] {
	h.description = desc
	return h
}

// WithTags sets the endpoint tags. Tags only affect schema generation
// filtering and grouping, never runtime behavior.
func (h *Handler[Q, B, Out]) WithTags(tags ...string) *Handler[Q, B, Out] {
	h.tags = tags
	return h
}

// WithResponseStatus sets the HTTP status used when the handler returns
// data rather than a raw response.
func (h *Handler[Q, B, Out]) WithResponseStatus(status int) *Handler[Q, B, Out] {
	h.responseStatus = status
	return h
}

// WithLoginRequired overrides the configured authentication default.
func (h *Handler[Q, B, Out]) WithLoginRequired(required bool) *Handler[Q, B, Out] {
	h.loginRequired = &required
	return h
}

// WithAuthCheck overrides the authentication predicate for this endpoint.
func (h *Handler[Q, B, Out]) WithAuthCheck(check func(*http.Request) bool) *Handler[Q, B, Out] {
	h.authCheck = check
	return h
}

// WithPublic disables authentication for this endpoint.
func (h *Handler[Q, B, Out]) WithPublic() *Handler[Q, B, Out] {
	return h.WithLoginRequired(false)
}

// WithAtomic overrides the configured transactional default.
func (h *Handler[Q, B, Out]) WithAtomic(atomic bool) *Handler[Q, B, Out] {
	h.atomic = &atomic
	return h
}

// WithAliasEncoding serializes the response through alias field names.
func (h *Handler[Q, B, Out]) WithAliasEncoding() *Handler[Q, B, Out] {
	h.aliasEncoding = true
	return h
}

// WithCSRFExempt marks the endpoint as exempt from CSRF protection. The
// flag is configuration metadata consumed by surrounding middleware and by
// MethodRouter's consistency check.
func (h *Handler[Q, B, Out]) WithCSRFExempt() *Handler[Q, B, Out] {
	h.csrfExempt = true
	return h
}

// WithValidationErrorHandler substitutes the response produced for query
// and body validation failures.
func (h *Handler[Q, B, Out]) WithValidationErrorHandler(fn func(*ValidationError) *Response) *Handler[Q, B, Out] {
	h.errorHandler = fn
	return h
}

// Spec implements Endpoint.
func (h *Handler[Q, B, Out]) Spec() EndpointSpec {
	cfg := h.config()
	return EndpointSpec{
		Name:           h.name,
		Method:         h.method,
		Summary:        h.summary,
		Description:    h.description,
		Tags:           h.tags,
		QueryParams:    h.query.paramNames(),
		HasBody:        h.body != nil,
		BodyIsList:     h.body != nil && h.body.isList,
		ResponseStatus: h.responseStatus,
		Passthrough:    h.encoder == nil,
		LoginRequired:  h.resolveBool(h.loginRequired, cfg.DefaultLoginRequired),
		Atomic:         h.resolveBool(h.atomic, cfg.DefaultAtomic),
		CSRFExempt:     h.csrfExempt,
		AliasEncoding:  h.aliasEncoding,
	}
}

// bind implements Endpoint.
func (h *Handler[Q, B, Out]) bind(cfg *Config) {
	h.cfg = cfg
}

// metadata implements metadataCarrier.
func (h *Handler[Q, B, Out]) metadata() operationMeta {
	meta := operationMeta{query: h.query, body: h.body}
	if h.encoder != nil {
		meta.out = h.outType
	}
	return meta
}

func (h *Handler[Q, B, Out]) config() *Config {
	if h.cfg != nil {
		return h.cfg
	}
	return DefaultConfig()
}

func (*Handler[Q, B, Out]) resolveBool(override *bool, def bool) bool {
	if override != nil {
		return *override
	}
	return def
}

// Process implements Endpoint. It runs the per-request state machine:
// authentication, body and query parsing, transactional handler invocation,
// error normalization and response encoding.
func (h *Handler[Q, B, Out]) Process(ctx context.Context, r *http.Request, w http.ResponseWriter) (int, error) {
	cfg := h.config()

	// AUTH_CHECK runs before any parsing.
	if h.resolveBool(h.loginRequired, cfg.DefaultLoginRequired) {
		check := h.authCheck
		if check == nil {
			check = cfg.authCheck()
		}
		if !check(r) {
			capitan.Warn(ctx, AuthRejected, EndpointNameKey.Field(h.name))
			return h.writeJSON(w, http.StatusUnauthorized, errorPayload{Errors: []string{"Login required"}})
		}
	}

	// PARSE_INPUT: body first, then query parameters. Either failure
	// short-circuits through the shared validation error path.
	var body B
	if h.body != nil && bodyMethods[r.Method] {
		if verr := h.body.parse(r, cfg.MaxBodySize, &body); verr != nil {
			return h.writeValidationError(ctx, w, verr)
		}
	}

	queryValue, verr := h.query.parse(r.URL.Query())
	if verr != nil {
		return h.writeValidationError(ctx, w, verr)
	}
	query := queryValue.Interface().(Q)

	req := &Request[Q, B]{
		Context:  ctx,
		Request:  r,
		Params:   pathParams(ctx),
		Query:    query,
		Body:     body,
		Identity: IdentityFromContext(ctx),
	}

	// INVOKE_HANDLER, optionally inside the transactional boundary.
	out, err := h.invoke(cfg, req)
	if err != nil {
		return h.writeHandlerError(ctx, w, err)
	}

	// ENCODE_RESPONSE: raw responses bypass serialization unconditionally.
	// The handler may return either *Response or a Response value.
	if h.encoder == nil {
		var raw *Response
		switch v := any(out).(type) {
		case *Response:
			raw = v
		case Response:
			raw = &v
		}
		if raw == nil {
			capitan.Error(ctx, HandlerFault,
				EndpointNameKey.Field(h.name),
				ErrorKey.Field("pass-through endpoint returned no response"),
			)
			return h.writeJSON(w, http.StatusInternalServerError, errorPayload{Errors: []string{"Internal server error"}})
		}
		return writeRaw(w, raw)
	}

	payload, merr := h.encoder.encode(out, h.aliasEncoding)
	if merr != nil {
		capitan.Error(ctx, ResponseMarshalError,
			EndpointNameKey.Field(h.name),
			ErrorKey.Field(merr.Error()),
		)
		return h.writeJSON(w, http.StatusInternalServerError, errorPayload{Errors: []string{"Internal server error"}})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.responseStatus)
	w.Write(payload)
	return h.responseStatus, nil
}

// invoke calls the wrapped handler, wrapping it in the transactional
// boundary when enabled and converting panics into errors so a fault in one
// handler cannot take the process down.
func (h *Handler[Q, B, Out]) invoke(cfg *Config, req *Request[Q, B]) (out Out, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	if h.resolveBool(h.atomic, cfg.DefaultAtomic) && cfg.Transactor != nil {
		err = cfg.Transactor.Atomic(req.Context, func(ctx context.Context) error {
			scoped := *req
			scoped.Context = ctx
			var ferr error
			out, ferr = h.fn(&scoped)
			return ferr
		})
		return out, err
	}
	return h.fn(req)
}

// writeHandlerError maps handler errors onto responses: not-found and
// public errors have dedicated shapes, validation errors reuse the 400
// path, and everything else is logged and reduced to an opaque 500.
func (h *Handler[Q, B, Out]) writeHandlerError(ctx context.Context, w http.ResponseWriter, err error) (int, error) {
	if errors.Is(err, ErrNotFound) {
		capitan.Debug(ctx, ResourceNotFound,
			EndpointNameKey.Field(h.name),
			ErrorKey.Field(err.Error()),
		)
		return h.writeJSON(w, http.StatusNotFound,
			errorPayload{Errors: []string{"The resource you tried to access does not exist"}})
	}

	var pub *PublicError
	if errors.As(err, &pub) {
		return h.writeJSON(w, pub.StatusCode, errorPayload{Errors: pub.Messages})
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return h.writeValidationError(ctx, w, verr)
	}

	capitan.Error(ctx, HandlerFault,
		EndpointNameKey.Field(h.name),
		ErrorKey.Field(err.Error()),
	)
	return h.writeJSON(w, http.StatusInternalServerError, errorPayload{Errors: []string{"Internal server error"}})
}

// writeValidationError renders a validation failure, honoring a custom
// per-endpoint handler when configured.
func (h *Handler[Q, B, Out]) writeValidationError(ctx context.Context, w http.ResponseWriter, verr *ValidationError) (int, error) {
	capitan.Warn(ctx, ValidationFailed,
		EndpointNameKey.Field(h.name),
		ErrorKey.Field(verr.Error()),
	)
	if h.errorHandler != nil {
		return writeRaw(w, h.errorHandler(verr))
	}
	return h.writeJSON(w, http.StatusBadRequest, verr)
}

// errorPayload is the body of non-validation error responses.
type errorPayload struct {
	Errors []string `json:"errors"`
}

func (h *Handler[Q, B, Out]) writeJSON(w http.ResponseWriter, status int, payload any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payload shapes are our own; marshaling them cannot fail.
		data = []byte(`{"errors":["Internal server error"]}`)
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return status, nil
}

// writeRaw writes an already-built response object verbatim.
func writeRaw(w http.ResponseWriter, resp *Response) (int, error) {
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(resp.Body)
	return status, nil
}
