package datasetsdetail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bench-archive/internal/common/config"
	"bench-archive/internal/common/logger"
	"bench-archive/internal/query"
)

type acceptingUsers struct{}

func (acceptingUsers) ValidateUser(_ context.Context, username string) (string, error) {
	return username, nil
}

func newTestResource(t *testing.T) *Resource {
	cfg := config.QueryConfig{
		IndexPrefix:      "bench",
		RunIndexTemplate: "v6.run-data",
		MaxResultSize:    5000,
	}
	return New(cfg, acceptingUsers{}, logger.NewTestLogger(t))
}

func TestAssemble(t *testing.T) {
	r := newTestResource(t)
	validated, err := r.Schema().Validate(context.Background(), map[string]interface{}{
		"user":  "drb",
		"name":  "fio_run4",
		"start": "2020-04-01",
		"end":   "2020-04-30",
	})
	require.NoError(t, err)

	req, err := r.Assemble(validated)
	require.NoError(t, err)
	assert.Equal(t, "bench.v6.run-data.2020-04", req.Indices)
	assert.Equal(t, "true", req.Params["ignore_unavailable"])
	assert.Equal(t, "_index", req.Body["sort"])

	filters := req.Body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Contains(t, filters, map[string]interface{}{
		"match": map[string]interface{}{"run.name": "fio_run4"},
	})
	assert.Contains(t, filters, map[string]interface{}{
		"match": map[string]interface{}{"authorization.owner": "drb"},
	})
}

func detailHit(src map[string]interface{}) query.Hit {
	return query.Hit{Source: src}
}

func TestPostprocessMergesRunAndMetadata(t *testing.T) {
	r := newTestResource(t)
	res := &query.Response{
		Hits: []query.Hit{detailHit(map[string]interface{}{
			"run": map[string]interface{}{
				"name":       "fio_run4",
				"controller": "host1",
			},
			"@metadata": map[string]interface{}{
				"file-name": "/archive/fio_run4.tar.xz",
				"md5":       "12fb1e952fd826727810868c9327254f",
			},
			"host_tools_info": []interface{}{
				map[string]interface{}{"hostname": "host1"},
			},
		})},
	}

	result, err := r.Postprocess(res)
	require.NoError(t, err)

	out := result.(map[string]interface{})
	runMetadata := out["runMetadata"].(map[string]interface{})
	assert.Equal(t, "fio_run4", runMetadata["name"])
	assert.Equal(t, "host1", runMetadata["controller"])
	assert.Equal(t, "/archive/fio_run4.tar.xz", runMetadata["file-name"])
	assert.Equal(t, "12fb1e952fd826727810868c9327254f", runMetadata["md5"])
	require.Contains(t, out, "hostTools")
}

func TestPostprocessOmitsAbsentHostTools(t *testing.T) {
	r := newTestResource(t)
	res := &query.Response{
		Hits: []query.Hit{detailHit(map[string]interface{}{
			"run": map[string]interface{}{"name": "fio_run4"},
		})},
	}

	result, err := r.Postprocess(res)
	require.NoError(t, err)
	assert.NotContains(t, result.(map[string]interface{}), "hostTools")
}

func TestPostprocessNoMatch(t *testing.T) {
	r := newTestResource(t)
	_, err := r.Postprocess(&query.Response{})
	assert.Error(t, err)
}

// More than one match is unexpected but served from the first hit.
func TestPostprocessMultipleMatches(t *testing.T) {
	r := newTestResource(t)
	res := &query.Response{
		Hits: []query.Hit{
			detailHit(map[string]interface{}{"run": map[string]interface{}{"name": "first"}}),
			detailHit(map[string]interface{}{"run": map[string]interface{}{"name": "second"}}),
		},
	}

	result, err := r.Postprocess(res)
	require.NoError(t, err)
	runMetadata := result.(map[string]interface{})["runMetadata"].(map[string]interface{})
	assert.Equal(t, "first", runMetadata["name"])
}
