// Package espassthrough implements the raw Elasticsearch passthrough
// resource: the caller supplies the index selector and query body, and
// the backend response is returned verbatim.
package espassthrough

import (
	"fmt"

	"bench-archive/internal/common/logger"
	"bench-archive/internal/common/validation"
	"bench-archive/internal/query"
)

const Name = "elasticsearch"

type Resource struct {
	schema *validation.Schema
	logger logger.Logger
}

func New(log logger.Logger) *Resource {
	return &Resource{
		schema: validation.NewSchema(nil,
			validation.RequiredParam("indices", validation.TypeString),
			validation.Param("payload", validation.TypeJSON),
			validation.Param("params", validation.TypeJSON),
		),
		logger: log.WithFields(map[string]interface{}{"resource": Name}),
	}
}

func (r *Resource) Name() string { return Name }

func (r *Resource) Schema() *validation.Schema { return r.schema }

// Assemble forwards the caller's index selector, query body, and
// parameters without interpretation.
func (r *Resource) Assemble(payload map[string]interface{}) (*query.Request, error) {
	indices, ok := payload["indices"].(string)
	if !ok {
		return nil, fmt.Errorf("validated payload is missing indices")
	}

	req := &query.Request{Indices: indices}

	if body, ok := payload["payload"].(map[string]interface{}); ok {
		req.Body = body
	}
	if params, ok := payload["params"].(map[string]interface{}); ok {
		req.Params = make(map[string]string, len(params))
		for name, value := range params {
			req.Params[name] = fmt.Sprint(value)
		}
	}

	return req, nil
}

// Postprocess returns the backend response unchanged.
func (r *Resource) Postprocess(res *query.Response) (interface{}, error) {
	return res.Raw, nil
}
