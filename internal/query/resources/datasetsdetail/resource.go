// Package datasetsdetail implements the "dataset detail" query
// resource: the full run document for one named dataset.
package datasetsdetail

import (
	"fmt"
	"time"

	"bench-archive/internal/common/config"
	"bench-archive/internal/common/logger"
	"bench-archive/internal/common/validation"
	"bench-archive/internal/query"
)

const Name = "datasets-detail"

type Resource struct {
	cfg    config.QueryConfig
	schema *validation.Schema
	logger logger.Logger
}

func New(cfg config.QueryConfig, users validation.UserValidator, log logger.Logger) *Resource {
	return &Resource{
		cfg: cfg,
		schema: validation.NewSchema(users,
			validation.Param("user", validation.TypeUser),
			validation.RequiredParam("name", validation.TypeString),
			validation.RequiredParam("start", validation.TypeDate),
			validation.RequiredParam("end", validation.TypeDate),
		),
		logger: log.WithFields(map[string]interface{}{"resource": Name}),
	}
}

func (r *Resource) Name() string { return Name }

func (r *Resource) Schema() *validation.Schema { return r.schema }

func (r *Resource) Cacheable() bool { return true }

// Assemble matches the dataset by run name and ownership term across
// the month-range run indices. Months without an index are skipped via
// ignore_unavailable rather than failing the search.
func (r *Resource) Assemble(payload map[string]interface{}) (*query.Request, error) {
	name, ok := payload["name"].(string)
	if !ok {
		return nil, fmt.Errorf("validated payload is missing name")
	}
	start, ok := payload["start"].(time.Time)
	if !ok {
		return nil, fmt.Errorf("validated payload is missing start")
	}
	end, ok := payload["end"].(time.Time)
	if !ok {
		return nil, fmt.Errorf("validated payload is missing end")
	}
	user, _ := payload["user"].(string)

	r.logger.Info("fetching dataset detail", map[string]interface{}{
		"name":  name,
		"user":  user,
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	})

	return &query.Request{
		Indices: query.MonthRange(r.cfg.IndexPrefix, r.cfg.RunIndexTemplate, start, end),
		Params:  map[string]string{"ignore_unavailable": "true"},
		Body: map[string]interface{}{
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"filter": []interface{}{
						map[string]interface{}{"match": map[string]interface{}{"run.name": name}},
						map[string]interface{}{"match": query.OwnerTerm(user)},
					},
				},
			},
			"sort": "_index",
		},
	}, nil
}

// Postprocess merges the run and @metadata subdocuments of the matched
// hit into one runMetadata record, with the host tools info attached in
// its original form.
func (r *Resource) Postprocess(res *query.Response) (interface{}, error) {
	// Matching by dataset name, which ought to be unique.
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("no dataset matched")
	}
	if len(res.Hits) != 1 {
		r.logger.Warn("expected exactly one dataset", map[string]interface{}{
			"count": len(res.Hits),
		})
	}

	src := res.Hits[0].Source
	run, ok := src["run"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("hit is missing the run subdocument")
	}

	runMetadata := make(map[string]interface{}, len(run))
	for k, v := range run {
		runMetadata[k] = v
	}
	if meta, ok := src["@metadata"].(map[string]interface{}); ok {
		for k, v := range meta {
			runMetadata[k] = v
		}
	}

	result := map[string]interface{}{
		"runMetadata": runMetadata,
	}
	if tools, ok := src["host_tools_info"]; ok {
		result["hostTools"] = tools
	}

	return result, nil
}
