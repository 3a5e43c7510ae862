package apidec

// EndpointSpec is the declarative descriptor attached to every registered
// endpoint. It is built once at registration, resolved against the global
// configuration at mount time, and never mutated afterwards; concurrent
// reads during request handling are safe.
type EndpointSpec struct {
	// Routing
	Name   string `json:"name"`
	Method string `json:"method"`

	// Documentation
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Request/Response
	QueryParams    []string `json:"queryParams,omitempty"`
	HasBody        bool     `json:"hasBody"`
	BodyIsList     bool     `json:"bodyIsList,omitempty"`
	ResponseStatus int      `json:"responseStatus"`
	Passthrough    bool     `json:"passthrough,omitempty"`

	// Behavior
	LoginRequired bool `json:"loginRequired"`
	Atomic        bool `json:"atomic"`
	CSRFExempt    bool `json:"csrfExempt,omitempty"`
	AliasEncoding bool `json:"aliasEncoding,omitempty"`
}
