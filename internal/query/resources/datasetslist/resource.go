// Package datasetslist implements the "list datasets" query resource:
// benchmark runs recorded for a controller, owned by a user or public,
// within the run indices selected by a date range.
package datasetslist

import (
	"fmt"
	"time"

	"bench-archive/internal/common/config"
	"bench-archive/internal/common/logger"
	"bench-archive/internal/common/validation"
	"bench-archive/internal/query"
)

const Name = "datasets-list"

type Resource struct {
	cfg    config.QueryConfig
	schema *validation.Schema
	logger logger.Logger
}

// New builds the resource. The user parameter is optional: absent or
// null means "public datasets only".
func New(cfg config.QueryConfig, users validation.UserValidator, log logger.Logger) *Resource {
	return &Resource{
		cfg: cfg,
		schema: validation.NewSchema(users,
			validation.Param("user", validation.TypeUser),
			validation.RequiredParam("controller", validation.TypeString),
			validation.RequiredParam("start", validation.TypeDate),
			validation.RequiredParam("end", validation.TypeDate),
		),
		logger: log.WithFields(map[string]interface{}{"resource": Name}),
	}
}

func (r *Resource) Name() string { return Name }

func (r *Resource) Schema() *validation.Schema { return r.schema }

func (r *Resource) Cacheable() bool { return true }

// Assemble builds a search over the month-range run indices, filtering
// on the ownership term and the controller, sorted by end time
// descending, projecting the fixed summary field set.
func (r *Resource) Assemble(payload map[string]interface{}) (*query.Request, error) {
	controller, ok := payload["controller"].(string)
	if !ok {
		return nil, fmt.Errorf("validated payload is missing controller")
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

	r.logger.Info("discovering datasets", map[string]interface{}{
		"user":       user,
		"controller": controller,
		"start":      start.Format("2006-01-02"),
		"end":        end.Format("2006-01-02"),
	})

	return &query.Request{
		Indices: query.MonthRange(r.cfg.IndexPrefix, r.cfg.RunIndexTemplate, start, end),
		Body: map[string]interface{}{
			"_source": map[string]interface{}{
				"includes": []string{
					"@metadata.controller_dir",
					"@metadata.satellite",
					"run.controller",
					"run.start",
					"run.end",
					"run.name",
					"run.config",
					"run.prefix",
					"run.id",
				},
			},
			"sort": map[string]interface{}{
				"run.end": map[string]interface{}{"order": "desc"},
			},
			"query": map[string]interface{}{
				"bool": map[string]interface{}{
					"filter": []interface{}{
						map[string]interface{}{"term": query.OwnerTerm(user)},
						map[string]interface{}{"term": map[string]interface{}{"run.controller": controller}},
					},
				},
			},
			"size": r.cfg.MaxResultSize,
		},
	}, nil
}

// Postprocess flattens each hit into a dataset summary record. Optional
// source fields are included only when present; an unparseable start
// time falls back to the backend sort key rather than failing the
// response.
func (r *Resource) Postprocess(res *query.Response) (interface{}, error) {
	r.logger.Info("datasets found", map[string]interface{}{"count": len(res.Hits)})

	datasets := make([]map[string]interface{}, 0, len(res.Hits))
	for _, hit := range res.Hits {
		run, ok := hit.Source["run"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("hit is missing the run subdocument")
		}

		d := map[string]interface{}{
			"key":            run["name"],
			"run.name":       run["name"],
			"run.controller": run["controller"],
			"run.start":      run["start"],
			"run.end":        run["end"],
			"id":             run["id"],
		}

		if ts, err := startTimestamp(run); err == nil {
			d["startUnixTimestamp"] = ts
		} else {
			r.logger.Info("cannot parse run start time, falling back to sort key", map[string]interface{}{
				"start": run["start"],
				"error": err.Error(),
			})
			if len(hit.Sort) > 0 {
				d["startUnixTimestamp"] = hit.Sort[0]
			}
		}

		if cfg, ok := run["config"]; ok {
			d["run.config"] = cfg
		}
		if prefix, ok := run["prefix"]; ok {
			d["run.prefix"] = prefix
		}
		if meta, ok := hit.Source["@metadata"].(map[string]interface{}); ok {
			if dir, ok := meta["controller_dir"]; ok {
				d["@metadata.controller_dir"] = dir
			}
			if sat, ok := meta["satellite"]; ok {
				d["@metadata.satellite"] = sat
			}
		}

		datasets = append(datasets, d)
	}

	return datasets, nil
}

// startTimestamp derives a Unix-epoch millisecond timestamp from the
// run's start-time string.
func startTimestamp(run map[string]interface{}) (int64, error) {
	s, ok := run["start"].(string)
	if !ok {
		return 0, fmt.Errorf("run.start is not a string")
	}
	ts, err := validation.ParseDate(s)
	if err != nil {
		return 0, err
	}
	return ts.UnixMilli(), nil
}
