package datasetslist

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"bench-archive/internal/common/config"
	"bench-archive/internal/common/logger"
	"bench-archive/internal/query"
)

// acceptingUsers echoes every username back, accepting the empty
// "no owner" sentinel.
type acceptingUsers struct{}

func (acceptingUsers) ValidateUser(_ context.Context, username string) (string, error) {
	return username, nil
}

func testConfig() config.QueryConfig {
	return config.QueryConfig{
		IndexPrefix:      "bench",
		RunIndexTemplate: "v6.run-data",
		MaxResultSize:    5000,
	}
}

func newTestResource(t *testing.T) *Resource {
	return New(testConfig(), acceptingUsers{}, logger.NewTestLogger(t))
}

// querySchema describes the structural shape every assembled search
// body must have.
const querySchema = `{
	"type": "object",
	"required": ["_source", "sort", "query", "size"],
	"properties": {
		"_source": {
			"type": "object",
			"required": ["includes"],
			"properties": {"includes": {"type": "array", "items": {"type": "string"}}}
		},
		"sort": {"type": "object"},
		"query": {
			"type": "object",
			"required": ["bool"],
			"properties": {
				"bool": {
					"type": "object",
					"required": ["filter"],
					"properties": {"filter": {"type": "array", "minItems": 2}}
				}
			}
		},
		"size": {"type": "integer", "minimum": 1}
	}
}`

func validatePayload(t *testing.T, r *Resource, payload map[string]interface{}) map[string]interface{} {
	validated, err := r.Schema().Validate(context.Background(), payload)
	require.NoError(t, err)
	return validated
}

func TestAssemble(t *testing.T) {
	r := newTestResource(t)
	validated := validatePayload(t, r, map[string]interface{}{
		"user":       "drb",
		"controller": "dhcp31-187.example.com",
		"start":      "2020-04-01",
		"end":        "2020-06-30",
	})

	req, err := r.Assemble(validated)
	require.NoError(t, err)
	assert.Equal(t,
		"bench.v6.run-data.2020-04,bench.v6.run-data.2020-05,bench.v6.run-data.2020-06",
		req.Indices)
	assert.Equal(t, 5000, req.Body["size"])

	filters := req.Body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Contains(t, filters, map[string]interface{}{
		"term": map[string]interface{}{"authorization.owner": "drb"},
	})
	assert.Contains(t, filters, map[string]interface{}{
		"term": map[string]interface{}{"run.controller": "dhcp31-187.example.com"},
	})
}

func TestAssembledBodyMatchesQuerySchema(t *testing.T) {
	r := newTestResource(t)
	validated := validatePayload(t, r, map[string]interface{}{
		"controller": "host1",
		"start":      "2020-01-01",
		"end":        "2020-01-31",
	})

	req, err := r.Assemble(validated)
	require.NoError(t, err)

	body, err := json.Marshal(req.Body)
	require.NoError(t, err)

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(querySchema),
		gojsonschema.NewBytesLoader(body),
	)
	require.NoError(t, err)
	assert.True(t, result.Valid(), "schema violations: %v", result.Errors())
}

func TestAssembleRejectsIncompletePayload(t *testing.T) {
	r := newTestResource(t)
	_, err := r.Assemble(map[string]interface{}{"controller": "host1"})
	assert.Error(t, err)
}

func runHit(run map[string]interface{}, sort []interface{}) query.Hit {
	return query.Hit{
		Source: map[string]interface{}{"run": run},
		Sort:   sort,
	}
}

func TestPostprocess(t *testing.T) {
	r := newTestResource(t)
	res := &query.Response{
		Hits: []query.Hit{
			{
				Source: map[string]interface{}{
					"run": map[string]interface{}{
						"name":       "fio_run4_2020.04.29T12.49.13",
						"controller": "dhcp31-187.example.com",
						"start":      "2020-04-29T12:49:13.560620",
						"end":        "2020-04-29T13:30:04.918704",
						"id":         "1234",
						"config":     "run4_iothread_isolcpus",
						"prefix":     "fio",
					},
					"@metadata": map[string]interface{}{
						"controller_dir": "dhcp31-187.example.com",
						"satellite":      "sat-one",
					},
				},
				Sort: []interface{}{float64(1588188604918)},
			},
		},
	}

	result, err := r.Postprocess(res)
	require.NoError(t, err)

	datasets := result.([]map[string]interface{})
	require.Len(t, datasets, 1)
	d := datasets[0]
	assert.Equal(t, "fio_run4_2020.04.29T12.49.13", d["key"])
	assert.Equal(t, "fio_run4_2020.04.29T12.49.13", d["run.name"])
	assert.Equal(t, "dhcp31-187.example.com", d["run.controller"])
	assert.Equal(t, "run4_iothread_isolcpus", d["run.config"])
	assert.Equal(t, "fio", d["run.prefix"])
	assert.Equal(t, "dhcp31-187.example.com", d["@metadata.controller_dir"])
	assert.Equal(t, "sat-one", d["@metadata.satellite"])

	expected := time.Date(2020, 4, 29, 12, 49, 13, 560620000, time.UTC).UnixMilli()
	assert.Equal(t, expected, d["startUnixTimestamp"])
}

func TestPostprocessOmitsAbsentOptionalFields(t *testing.T) {
	r := newTestResource(t)
	res := &query.Response{
		Hits: []query.Hit{runHit(map[string]interface{}{
			"name":       "run1",
			"controller": "host1",
			"start":      "2020-01-10T00:00:00",
			"end":        "2020-01-10T01:00:00",
			"id":         "1",
		}, nil)},
	}

	result, err := r.Postprocess(res)
	require.NoError(t, err)

	datasets := result.([]map[string]interface{})
	require.Len(t, datasets, 1)
	assert.NotContains(t, datasets[0], "run.config")
	assert.NotContains(t, datasets[0], "run.prefix")
	assert.NotContains(t, datasets[0], "@metadata.controller_dir")
	assert.NotContains(t, datasets[0], "@metadata.satellite")
}

func TestPostprocessFallsBackToSortKey(t *testing.T) {
	r := newTestResource(t)
	res := &query.Response{
		Hits: []query.Hit{runHit(map[string]interface{}{
			"name":       "run1",
			"controller": "host1",
			"start":      "not-a-date",
			"end":        "2020-01-10T01:00:00",
			"id":         "1",
		}, []interface{}{float64(1578614400000)})},
	}

	result, err := r.Postprocess(res)
	require.NoError(t, err)

	datasets := result.([]map[string]interface{})
	require.Len(t, datasets, 1)
	assert.Equal(t, float64(1578614400000), datasets[0]["startUnixTimestamp"])
}

func TestPostprocessEmptyResponse(t *testing.T) {
	r := newTestResource(t)
	result, err := r.Postprocess(&query.Response{})
	require.NoError(t, err)
	assert.Empty(t, result.([]map[string]interface{}))
}

// publicExecutor captures the assembled request and returns one hit
// without a config field.
type publicExecutor struct {
	captured *query.Request
}

func (e *publicExecutor) Execute(_ context.Context, req *query.Request) (*query.Response, error) {
	e.captured = req
	return &query.Response{
		Hits: []query.Hit{runHit(map[string]interface{}{
			"name":       "run1",
			"controller": "host1",
			"start":      "2020-01-10T00:00:00",
			"end":        "2020-01-10T01:00:00",
			"id":         "1",
		}, []interface{}{float64(1578614400000)})},
	}, nil
}

// A null user means "public datasets only" and flows end to end.
func TestListPublicDatasets(t *testing.T) {
	r := newTestResource(t)
	ex := &publicExecutor{}

	result, err := query.Run(context.Background(), r, ex, map[string]interface{}{
		"user":       nil,
		"controller": "host1",
		"start":      "2020-01-01",
		"end":        "2020-01-31",
	})
	require.NoError(t, err)

	require.NotNil(t, ex.captured)
	assert.Equal(t, "bench.v6.run-data.2020-01", ex.captured.Indices)
	filters := ex.captured.Body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Contains(t, filters, map[string]interface{}{
		"term": map[string]interface{}{"authorization.access": "public"},
	})
	assert.Contains(t, filters, map[string]interface{}{
		"term": map[string]interface{}{"run.controller": "host1"},
	})

	datasets := result.([]map[string]interface{})
	require.Len(t, datasets, 1)
	assert.Equal(t, "run1", datasets[0]["run.name"])
	assert.NotContains(t, datasets[0], "run.config")
}
