package apidec

import (
	"context"
	"net/http"
	"time"
)

// Transactor is the transactional boundary collaborator. When an endpoint
// is atomic, the pipeline runs the handler inside Atomic; the implementation
// must commit on nil return and roll back otherwise, releasing the
// transaction on every exit path.
type Transactor interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// Config holds the global settings for the pipeline, the engine and the
// schema generator. Endpoints inherit the Default* values unless they
// override them individually.
type Config struct {
	// Server settings
	Host         string        // Host to bind to (empty binds all interfaces)
	Port         int           // Port to listen on
	ReadTimeout  time.Duration // Maximum duration for reading entire request
	WriteTimeout time.Duration // Maximum duration for writing response
	IdleTimeout  time.Duration // Maximum keep-alive wait for the next request

	// Endpoint defaults
	DefaultLoginRequired bool                     // Endpoints require auth unless overridden (default true)
	DefaultAtomic        bool                     // Handlers run inside a transaction unless overridden (default true)
	AuthCheck            func(*http.Request) bool // Authentication predicate (nil means DefaultAuthCheck)
	Transactor           Transactor               // Transaction collaborator (nil disables atomic wrapping)
	MaxBodySize          int64                    // Maximum request body size in bytes (0 = unlimited)

	// Schema generation
	SchemaPath         string   // File path for the generated OpenAPI document
	SchemaTitle        string   // info.title of the generated document
	SchemaVersion      string   // info.version of the generated document
	SchemaAutogenerate bool     // Write the schema file when routes are mounted
	IncludeTags        []string // Keep only operations with an intersecting tag
	ExcludeTags        []string // Drop operations with an intersecting tag
	ExcludeNamespaces  []string // Skip whole named routing subtrees
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:                 "",
		Port:                 8080,
		ReadTimeout:          10 * time.Second,
		WriteTimeout:         10 * time.Second,
		IdleTimeout:          120 * time.Second,
		DefaultLoginRequired: true,
		DefaultAtomic:        true,
		MaxBodySize:          10 * 1024 * 1024,
		SchemaTitle:          "API overview",
		SchemaVersion:        "0.0.1",
	}
}

// WithHost sets the host to bind to.
func (c *Config) WithHost(host string) *Config {
	c.Host = host
	return c
}

// WithPort sets the port to listen on.
func (c *Config) WithPort(port int) *Config {
	c.Port = port
	return c
}

// WithTransactor sets the transactional boundary collaborator.
func (c *Config) WithTransactor(tx Transactor) *Config {
	c.Transactor = tx
	return c
}

// WithAuthCheck sets the global authentication predicate.
func (c *Config) WithAuthCheck(check func(*http.Request) bool) *Config {
	c.AuthCheck = check
	return c
}

// WithSchemaPath sets the output path for the generated OpenAPI document.
func (c *Config) WithSchemaPath(path string) *Config {
	c.SchemaPath = path
	return c
}

// authCheck resolves the configured authentication predicate.
func (c *Config) authCheck() func(*http.Request) bool {
	if c.AuthCheck != nil {
		return c.AuthCheck
	}
	return DefaultAuthCheck
}
