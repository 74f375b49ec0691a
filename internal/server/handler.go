package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	apierrors "bench-archive/internal/common/errors"
	"bench-archive/internal/common/logger"
	"bench-archive/internal/common/metrics"
	"bench-archive/internal/common/observability"
	"bench-archive/internal/common/validation"
	"bench-archive/internal/query"
	"bench-archive/internal/query/cache"
)

// QueryHandler serves one query resource over HTTP POST, driving the
// validate/assemble/execute/postprocess lifecycle and mapping each
// failure kind to its response status.
type QueryHandler struct {
	resource query.Resource
	executor query.Executor
	cache    *cache.ResponseCache
	obs      *observability.Observability
	logger   logger.Logger
}

func NewQueryHandler(res query.Resource, ex query.Executor, rc *cache.ResponseCache, obs *observability.Observability, log logger.Logger) *QueryHandler {
	return &QueryHandler{
		resource: res,
		executor: ex,
		cache:    rc,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"resource": res.Name()}),
	}
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	requestID := uuid.New().String()
	log := h.logger.WithFields(map[string]interface{}{"requestId": requestID})
	start := time.Now()

	var raw interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.fail(w, log, apierrors.NewInvalidRequestPayloadError("request body is not valid JSON"))
		return
	}
	payload, ok := raw.(map[string]interface{})
	if !ok {
		h.fail(w, log, apierrors.NewInvalidRequestPayloadError("request body must be a JSON object"))
		return
	}

	validated, err := h.resource.Schema().Validate(ctx, payload)
	if err != nil {
		h.fail(w, log, h.classify(err))
		return
	}

	cacheKey := ""
	if c, ok := h.resource.(query.Cacheable); ok && c.Cacheable() && h.cache != nil {
		cacheKey = cache.Key(h.resource.Name(), validated)
		if body, hit := h.cache.Get(ctx, cacheKey); hit {
			metrics.CacheHits.WithLabelValues(h.resource.Name()).Inc()
			log.Debug("serving cached response", map[string]interface{}{"key": cacheKey})
			h.writeJSON(w, http.StatusOK, body)
			h.observe(r, start, "cached")
			return
		}
	}

	req, err := h.resource.Assemble(validated)
	if err != nil {
		h.fail(w, log, apierrors.NewInternalError(err))
		return
	}

	res, err := h.executor.Execute(ctx, req)
	if err != nil {
		h.fail(w, log, h.classify(err))
		return
	}

	result, err := h.resource.Postprocess(res)
	if err != nil {
		h.fail(w, log, apierrors.NewPostprocessFailedError(h.resource.Name(), err))
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.fail(w, log, apierrors.NewInternalError(err))
		return
	}

	if cacheKey != "" {
		h.cache.Set(ctx, cacheKey, body)
	}

	h.writeJSON(w, http.StatusOK, body)
	metrics.QueriesCompleted.WithLabelValues(h.resource.Name()).Inc()
	h.observe(r, start, "success")
}

// classify maps lifecycle errors to the API error taxonomy.
func (h *QueryHandler) classify(err error) *apierrors.StandardError {
	var invalid *validation.InvalidRequestPayloadError
	var missing *validation.MissingParametersError
	var conversion *validation.ConversionError

	switch {
	case stderrors.As(err, &invalid):
		return apierrors.NewInvalidRequestPayloadError(err.Error())
	case stderrors.As(err, &missing):
		return apierrors.NewMissingParametersError(err.Error())
	case stderrors.As(err, &conversion):
		return apierrors.NewConversionFailedError(conversion.Field, err)
	case stderrors.Is(err, query.ErrBackendTimeout):
		return apierrors.NewBackendTimeoutError(h.resource.Name())
	case stderrors.Is(err, query.ErrBackendConnection):
		return apierrors.NewBackendConnectionFailedError(err)
	case stderrors.Is(err, query.ErrBackendQuery):
		return apierrors.NewBackendQueryFailedError(h.resource.Name(), err)
	default:
		return apierrors.NewInternalError(err)
	}
}

func (h *QueryHandler) fail(w http.ResponseWriter, log logger.Logger, stdErr *apierrors.StandardError) {
	status := apierrors.HTTPStatus(stdErr.Code)
	if apierrors.IsClientError(stdErr.Code) {
		log.Info("rejecting request", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
	} else {
		log.Error("query failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
	}

	metrics.QueriesFailed.WithLabelValues(h.resource.Name(), string(stdErr.Code)).Inc()
	if h.obs != nil {
		h.obs.RecordQueryProcessed(context.Background(), h.resource.Name(), "failed")
	}

	body, err := json.Marshal(map[string]interface{}{"error": stdErr})
	if err != nil {
		http.Error(w, stdErr.Message, status)
		return
	}
	h.writeJSON(w, status, body)
}

func (h *QueryHandler) writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *QueryHandler) observe(r *http.Request, start time.Time, status string) {
	elapsed := time.Since(start)
	metrics.QueryDuration.WithLabelValues(h.resource.Name()).Observe(elapsed.Seconds())
	if h.obs != nil {
		h.obs.RecordQueryProcessed(r.Context(), h.resource.Name(), status)
		h.obs.RecordQueryDuration(r.Context(), h.resource.Name(), elapsed)
	}
}
