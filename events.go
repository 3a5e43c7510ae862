package apidec

import "github.com/zoobzio/capitan"

// Engine lifecycle signals.
var (
	// EngineCreated is emitted when an Engine instance is created.
	// Fields: HostKey, PortKey.
	EngineCreated = capitan.NewSignal("api.engine.created", "API engine instance created with configured host and port")

	// EngineStarting is emitted when the server starts listening for requests.
	// Fields: HostKey, PortKey, AddressKey.
	EngineStarting = capitan.NewSignal("api.engine.starting", "API server starting to listen for requests on configured address")

	// EngineShutdownStarted is emitted when graceful shutdown is initiated.
	// Fields: none.
	EngineShutdownStarted = capitan.NewSignal("api.engine.shutdown.started", "API engine graceful shutdown initiated")

	// EngineShutdownComplete is emitted when shutdown finishes.
	// Fields: GracefulKey, ErrorKey (if failed).
	EngineShutdownComplete = capitan.NewSignal("api.engine.shutdown.complete", "API engine shutdown completed, graceful or with error")
)

// Mounting signals.
var (
	// EndpointMounted is emitted when an endpoint is mounted on the engine.
	// Fields: EndpointNameKey, MethodKey, PathKey.
	EndpointMounted = capitan.NewSignal("api.endpoint.mounted", "Endpoint mounted on engine for specific route")
)

// Request lifecycle signals.
var (
	// RequestReceived is emitted when a request reaches an endpoint.
	// Fields: MethodKey, PathKey, EndpointNameKey.
	RequestReceived = capitan.NewSignal("api.request.received", "Request received and routed to endpoint")

	// RequestCompleted is emitted when a request completes successfully.
	// Fields: MethodKey, PathKey, EndpointNameKey, StatusCodeKey, DurationMsKey.
	RequestCompleted = capitan.NewSignal("api.request.completed", "Request completed with response sent")

	// RequestFailed is emitted when a request fails with an error.
	// Fields: MethodKey, PathKey, EndpointNameKey, StatusCodeKey, DurationMsKey, ErrorKey.
	RequestFailed = capitan.NewSignal("api.request.failed", "Request failed during processing with error")
)

// Pipeline signals.
var (
	// AuthRejected is emitted when the authentication check fails.
	// Fields: EndpointNameKey.
	AuthRejected = capitan.NewSignal("api.request.auth.rejected", "Request rejected, endpoint requires authentication")

	// ValidationFailed is emitted when query or body validation fails.
	// Fields: EndpointNameKey, ErrorKey.
	ValidationFailed = capitan.NewSignal("api.request.validation.failed", "Request input validation failed")

	// ResourceNotFound is emitted when a handler reports a missing resource.
	// Fields: EndpointNameKey, ErrorKey.
	ResourceNotFound = capitan.NewSignal("api.handler.notfound", "Handler reported that the requested resource does not exist")

	// HandlerFault is emitted when a handler returns an unclassified error
	// or panics. Fields: EndpointNameKey, ErrorKey.
	HandlerFault = capitan.NewSignal("api.handler.fault", "Handler failed with unclassified error, returning opaque 500")

	// ResponseMarshalError is emitted when response serialization fails.
	// Fields: EndpointNameKey, ErrorKey.
	ResponseMarshalError = capitan.NewSignal("api.response.marshal.error", "Failed to marshal handler return value to JSON")
)

// Schema generation signals.
var (
	// RouteSkipped is emitted when the generator skips a route.
	// Fields: PathKey, ReasonKey.
	RouteSkipped = capitan.NewSignal("api.schema.route.skipped", "Route skipped during schema generation")

	// SchemaGenerated is emitted when a document has been generated.
	// Fields: PathCountKey, SchemaCountKey.
	SchemaGenerated = capitan.NewSignal("api.schema.generated", "OpenAPI document generated from route tree")

	// SchemaFileWritten is emitted when the schema file is persisted.
	// Fields: SchemaPathKey.
	SchemaFileWritten = capitan.NewSignal("api.schema.file.written", "OpenAPI document written to schema file")
)

// Event field keys (primitive types only).
var (
	// Engine fields.
	HostKey    = capitan.NewStringKey("host")
	PortKey    = capitan.NewIntKey("port")
	AddressKey = capitan.NewStringKey("address")

	// Request/Response fields.
	MethodKey       = capitan.NewStringKey("method")
	PathKey         = capitan.NewStringKey("path")
	EndpointNameKey = capitan.NewStringKey("endpoint_name")
	StatusCodeKey   = capitan.NewIntKey("status_code")
	DurationMsKey   = capitan.NewInt64Key("duration_ms")
	ErrorKey        = capitan.NewStringKey("error")
	GracefulKey     = capitan.NewBoolKey("graceful")

	// Schema generation fields.
	ReasonKey      = capitan.NewStringKey("reason")
	PathCountKey   = capitan.NewIntKey("path_count")
	SchemaCountKey = capitan.NewIntKey("schema_count")
	SchemaPathKey  = capitan.NewStringKey("schema_path")
)
