// Package query defines the per-endpoint query resource contract and
// the request lifecycle that binds schema validation, backend request
// assembly, dispatch, and response postprocessing together.
package query

import (
	"context"
	"errors"

	"bench-archive/internal/common/validation"
)

// Dispatch failure classes reported by an Executor.
var (
	ErrBackendConnection = errors.New("BACKEND_CONNECTION_FAILED")
	ErrBackendQuery      = errors.New("BACKEND_QUERY_FAILED")
	ErrBackendTimeout    = errors.New("BACKEND_TIMEOUT")
)

// Request is the backend search descriptor produced by a resource's
// Assemble step and consumed by an Executor.
type Request struct {
	// Indices is the comma-joined index selector targeted by the search.
	Indices string
	// Body is the backend-specific structured query body (projection,
	// filters, sort, size). A nil body issues an unrestricted search.
	Body map[string]interface{}
	// Params carries extra request parameters such as ignore_unavailable.
	Params map[string]string
}

// Hit is one record of a backend response's result list.
type Hit struct {
	Source map[string]interface{}
	// Sort is the backend-assigned sort key, when the query sorted.
	Sort []interface{}
}

// Response is the decoded backend search result.
type Response struct {
	Took int64
	// Raw is the full backend response body, for resources that forward
	// it verbatim.
	Raw map[string]interface{}
	// Hits is the ordered result list.
	Hits []Hit
}

// Resource is the per-endpoint contract: a bound Schema plus the two
// pure transformation steps. Assemble and Postprocess perform no I/O.
type Resource interface {
	// Name identifies the resource in logs, metrics, and cache keys.
	Name() string
	// Schema returns the parameter schema validating inbound payloads.
	Schema() *validation.Schema
	// Assemble builds the backend search request from a validated payload.
	Assemble(payload map[string]interface{}) (*Request, error)
	// Postprocess transforms the raw backend result into the external
	// response shape.
	Postprocess(res *Response) (interface{}, error)
}

// Cacheable marks resources whose postprocessed responses may be served
// from the response cache.
type Cacheable interface {
	Cacheable() bool
}

// Executor dispatches an assembled request against the search backend.
// Transport, retry, and timeout policy belong to the implementation;
// failures must be classified as one of the dispatch failure classes.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// Run executes the full query lifecycle for one payload: validate,
// assemble, dispatch, postprocess. A validation failure short-circuits
// before any backend work.
func Run(ctx context.Context, res Resource, ex Executor, payload map[string]interface{}) (interface{}, error) {
	validated, err := res.Schema().Validate(ctx, payload)
	if err != nil {
		return nil, err
	}

	req, err := res.Assemble(validated)
	if err != nil {
		return nil, err
	}

	esRes, err := ex.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	return res.Postprocess(esRes)
}
