package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"bench-archive/internal/common/logger"
)

// ESExecutor dispatches requests against an Elasticsearch cluster.
type ESExecutor struct {
	client  *elasticsearch.Client
	timeout time.Duration
	logger  logger.Logger
}

func NewESExecutor(client *elasticsearch.Client, timeout time.Duration, log logger.Logger) *ESExecutor {
	return &ESExecutor{
		client:  client,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "es-executor"}),
	}
}

// Execute issues the search and decodes the response. Failures are
// classified as connection, timeout, or query errors so the caller can
// distinguish them from client-input problems.
func (e *ESExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.Indices == "" {
		return nil, fmt.Errorf("%w: empty index selector", ErrBackendQuery)
	}

	searchReq := esapi.SearchRequest{
		Index: strings.Split(req.Indices, ","),
	}

	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal query body: %v", ErrBackendQuery, err)
		}
		searchReq.Body = bytes.NewReader(body)
	}

	for name, value := range req.Params {
		switch name {
		case "ignore_unavailable":
			ignore := value == "true"
			searchReq.IgnoreUnavailable = &ignore
		case "q":
			searchReq.Query = value
		default:
			e.logger.Warn("dropping unsupported search parameter", map[string]interface{}{
				"param": name,
				"value": value,
			})
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err := searchReq.Do(ctx, e.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrBackendTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendConnection, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrBackendQuery, res.Status())
	}

	return decodeResponse(res.Body)
}

// decodeResponse parses the backend body into the Response shape,
// keeping the raw document alongside the extracted hit list.
func decodeResponse(body io.Reader) (*Response, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrBackendQuery, err)
	}

	out := &Response{Raw: raw}
	if took, ok := raw["took"].(float64); ok {
		out.Took = int64(took)
	}

	hitsWrapper, ok := raw["hits"].(map[string]interface{})
	if !ok {
		return out, nil
	}
	hitList, ok := hitsWrapper["hits"].([]interface{})
	if !ok {
		return out, nil
	}

	out.Hits = make([]Hit, 0, len(hitList))
	for _, h := range hitList {
		hm, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		hit := Hit{}
		if src, ok := hm["_source"].(map[string]interface{}); ok {
			hit.Source = src
		}
		if sort, ok := hm["sort"].([]interface{}); ok {
			hit.Sort = sort
		}
		out.Hits = append(out.Hits, hit)
	}

	return out, nil
}
