package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	body := `{
		"took": 12,
		"hits": {
			"total": {"value": 2},
			"hits": [
				{"_source": {"run": {"name": "run1"}}, "sort": [1588178953561]},
				{"_source": {"run": {"name": "run2"}}}
			]
		}
	}`

	res, err := decodeResponse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.Took)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "run1", res.Hits[0].Source["run"].(map[string]interface{})["name"])
	require.Len(t, res.Hits[0].Sort, 1)
	assert.Equal(t, float64(1588178953561), res.Hits[0].Sort[0])
	assert.Nil(t, res.Hits[1].Sort)
	assert.Contains(t, res.Raw, "hits")
}

func TestDecodeResponseWithoutHits(t *testing.T) {
	res, err := decodeResponse(strings.NewReader(`{"took": 3}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Took)
	assert.Empty(t, res.Hits)
}

func TestDecodeResponseMalformed(t *testing.T) {
	_, err := decodeResponse(strings.NewReader(`not json`))
	assert.ErrorIs(t, err, ErrBackendQuery)
}
