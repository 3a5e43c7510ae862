package apidec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zoobzio/capitan"
)

// Engine mounts a route tree onto a chi router and runs the HTTP server.
type Engine struct {
	cfg         *Config
	server      *http.Server
	chiRouter   chi.Router
	routes      *Routes
	ctx         context.Context
	cancel      context.CancelFunc
	defaultOnce sync.Once
}

// NewEngine creates an engine with the given configuration. A nil config
// uses DefaultConfig.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		cfg:       cfg,
		chiRouter: chi.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	e.server = &http.Server{
		Addr:         addr,
		Handler:      e.chiRouter,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	capitan.Emit(ctx, EngineCreated,
		HostKey.Field(cfg.Host),
		PortKey.Field(cfg.Port),
	)

	return e
}

// WithMiddleware adds global middleware and returns the engine for
// chaining. Must be called before Mount.
func (e *Engine) WithMiddleware(middleware ...func(http.Handler) http.Handler) *Engine {
	for _, mw := range middleware {
		e.chiRouter.Use(mw)
	}
	return e
}

// Mount resolves the route tree and registers every route with the router.
// When SchemaAutogenerate is set, the schema file is rewritten so it can
// never drift from the mounted routes.
func (e *Engine) Mount(routes *Routes) error {
	e.routes = routes
	e.ensureDefaultHandlers()

	for _, r := range resolveRoutes(routes, nil) {
		switch r.kind {
		case routeHTTP:
			e.chiRouter.Handle(chiPattern(r.url), r.handler)
			continue
		case routeRegex:
			r.endpoint.bind(e.cfg)
			if _, ok := r.endpoint.(methodGroup); ok {
				e.chiRouter.Handle(r.url, e.adaptEndpoint(r.endpoint))
			} else {
				e.chiRouter.Method(r.endpoint.Spec().Method, r.url, e.adaptEndpoint(r.endpoint))
			}
			continue
		}

		r.endpoint.bind(e.cfg)
		spec := r.endpoint.Spec()
		pattern := chiPattern(r.url)
		httpHandler := e.adaptEndpoint(r.endpoint)

		if _, ok := r.endpoint.(methodGroup); ok {
			// Method routers answer every verb themselves (405 + Allow
			// for the unsupported ones).
			e.chiRouter.Handle(pattern, httpHandler)
		} else {
			e.chiRouter.Method(spec.Method, pattern, httpHandler)
		}

		capitan.Emit(e.ctx, EndpointMounted,
			EndpointNameKey.Field(spec.Name),
			MethodKey.Field(spec.Method),
			PathKey.Field(r.url),
		)
	}

	if e.cfg.SchemaAutogenerate && e.cfg.SchemaPath != "" {
		if err := WriteSchemaFile(routes, e.cfg); err != nil {
			return fmt.Errorf("schema autogenerate: %w", err)
		}
	}
	return nil
}

// ensureDefaultHandlers registers the /openapi and /docs routes (once).
func (e *Engine) ensureDefaultHandlers() {
	e.defaultOnce.Do(func() {
		e.chiRouter.Get("/openapi", func(w http.ResponseWriter, _ *http.Request) {
			spec, err := GenerateSpec(e.routes, e.cfg)
			if err != nil {
				http.Error(w, "failed to generate schema", http.StatusInternalServerError)
				return
			}
			data, err := json.MarshalIndent(spec, "", "  ")
			if err != nil {
				http.Error(w, "failed to generate schema", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
		})

		e.chiRouter.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)

			html := `<!DOCTYPE html>
<html>
<head>
    <title>API Documentation</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
    <script id="api-reference" data-url="/openapi"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`

			w.Write([]byte(html))
		})
	})
}

// adaptEndpoint converts an Endpoint to http.HandlerFunc with request
// lifecycle events around it.
func (e *Engine) adaptEndpoint(endpoint Endpoint) http.HandlerFunc {
	name := endpoint.Spec().Name
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		startTime := time.Now()

		capitan.Emit(ctx, RequestReceived,
			MethodKey.Field(r.Method),
			PathKey.Field(r.URL.Path),
			EndpointNameKey.Field(name),
		)

		status, err := endpoint.Process(ctx, r, w)

		durationMs := time.Since(startTime).Milliseconds()
		if err != nil {
			capitan.Emit(ctx, RequestFailed,
				MethodKey.Field(r.Method),
				PathKey.Field(r.URL.Path),
				EndpointNameKey.Field(name),
				StatusCodeKey.Field(status),
				DurationMsKey.Field(durationMs),
				ErrorKey.Field(err.Error()),
			)
		} else {
			capitan.Emit(ctx, RequestCompleted,
				MethodKey.Field(r.Method),
				PathKey.Field(r.URL.Path),
				EndpointNameKey.Field(name),
				StatusCodeKey.Field(status),
				DurationMsKey.Field(durationMs),
			)
		}
	}
}

// Start begins listening for HTTP requests. Blocks until shutdown.
func (e *Engine) Start() error {
	capitan.Emit(e.ctx, EngineStarting,
		HostKey.Field(e.cfg.Host),
		PortKey.Field(e.cfg.Port),
		AddressKey.Field(e.server.Addr),
	)

	err := e.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown performs a graceful shutdown of the engine.
func (e *Engine) Shutdown(ctx context.Context) error {
	capitan.Emit(ctx, EngineShutdownStarted)

	err := e.server.Shutdown(ctx)
	e.cancel()

	if err != nil {
		capitan.Emit(context.Background(), EngineShutdownComplete,
			GracefulKey.Field(false),
			ErrorKey.Field(err.Error()),
		)
	} else {
		capitan.Emit(context.Background(), EngineShutdownComplete,
			GracefulKey.Field(true),
		)
	}

	capitan.Shutdown()
	return err
}

// placeholderPattern matches <int:name>, <str:name> and <slug:name>.
var placeholderPattern = regexp.MustCompile(`<(int|str|slug):([A-Za-z_][A-Za-z0-9_]*)>`)

// chiPattern rewrites placeholder segments into chi route parameters.
// Typed placeholders carry a matching regex so that, for example, a
// non-numeric value against <int:a> fails route matching with a 404
// before any endpoint runs.
func chiPattern(url string) string {
	return placeholderPattern.ReplaceAllStringFunc(url, func(m string) string {
		parts := placeholderPattern.FindStringSubmatch(m)
		kind, name := parts[1], parts[2]
		switch kind {
		case "int":
			return "{" + name + ":[0-9]+}"
		case "slug":
			return "{" + name + ":[-a-zA-Z0-9_]+}"
		default:
			return "{" + name + "}"
		}
	})
}

// pathParams collects the matched route parameters for the request.
func pathParams(ctx context.Context) *Params {
	params := &Params{Path: map[string]string{}}
	rctx := chi.RouteContext(ctx)
	if rctx == nil {
		return params
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params.Path[key] = rctx.URLParams.Values[i]
	}
	return params
}
