package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/domeara/becool/internal/client"
	"github.com/domeara/becool/internal/geo"
	"github.com/domeara/becool/internal/observability"
	"github.com/domeara/becool/internal/rank"
	"github.com/domeara/becool/internal/service"
	"github.com/domeara/becool/internal/validation"
)

// CoolestFinder is the slice of the service layer the handlers need.
type CoolestFinder interface {
	FindCoolest(ctx context.Context, originZip string, radiusMiles float64) (service.Result, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	finder        CoolestFinder
	logger        *zap.Logger
	defaultRadius float64
	maxRadius     float64
	// cachePing, when set, is called by the health check. Used when the
	// backend is memcached.
	cachePing func() error
}

// NewHandler returns a new Handler.
func NewHandler(finder CoolestFinder, logger *zap.Logger, defaultRadius, maxRadius float64, cachePing func() error) *Handler {
	return &Handler{
		finder:        finder,
		logger:        logger,
		defaultRadius: defaultRadius,
		maxRadius:     maxRadius,
		cachePing:     cachePing,
	}
}

// GetCoolest handles GET /coolest/{zip}?radius=N.
func (h *Handler) GetCoolest(w http.ResponseWriter, r *http.Request) {
	zip, err := validation.ValidateZip(mux.Vars(r)["zip"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ZIP", err.Error())
		return
	}

	radius := h.defaultRadius
	if raw := strings.TrimSpace(r.URL.Query().Get("radius")); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_RADIUS", "radius must be a number")
			return
		}
	}
	if err := validation.ValidateRadius(radius, h.maxRadius); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RADIUS", err.Error())
		return
	}

	result, err := h.finder.FindCoolest(r.Context(), zip, radius)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	checks := map[string]string{}
	if h.cachePing != nil {
		if h.cachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
			status = "degraded"
		}
	}

	resp := map[string]interface{}{
		"status":    status,
		"service":   "becool",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, statusCode, resp)
}

// writeServiceError maps pipeline errors onto status codes. Upstream
// failures surface as 5xx, never as a fabricated result.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())
	if logger == nil {
		logger = h.logger
	}

	switch {
	case errors.Is(err, geo.ErrUnknownZip):
		writeError(w, http.StatusNotFound, "UNKNOWN_ZIP", "zip code not found in dataset")
	case errors.Is(err, rank.ErrNoData):
		writeError(w, http.StatusNotFound, "NO_DATA", "no candidate zip returned usable forecast data")
	case errors.Is(err, client.ErrAPIAuth):
		logger.Error("forecast api auth rejected", zap.Error(err))
		writeError(w, http.StatusBadGateway, "UPSTREAM_AUTH", "forecast provider rejected credentials")
	case errors.Is(err, client.ErrRateLimited):
		logger.Warn("forecast api rate limited", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "UPSTREAM_RATE_LIMITED", "forecast provider quota exhausted")
	case errors.Is(err, client.ErrAPIUnavailable):
		logger.Error("forecast api unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "forecast provider unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "TIMEOUT", "lookup timed out")
	default:
		logger.Error("lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error":   code,
		"message": message,
	})
}
