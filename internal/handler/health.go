package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bigongold/loan-manager/pkg/response"

	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	ping    func(ctx context.Context) error
	redis   *redis.Client
	timeout time.Duration
}

// NewHealthHandler builds the health endpoints. ping and redis may be nil
// when the store has no connection or no cache is configured.
func NewHealthHandler(ping func(ctx context.Context) error, redis *redis.Client, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		ping:    ping,
		redis:   redis,
		timeout: timeout,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health performs a basic health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	response.Success(w, status)
}

// Ready performs readiness check including store and redis connectivity
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	switch {
	case h.ping == nil:
		status.Checks["store"] = "in-memory"
	case h.ping(ctx) != nil:
		status.Status = "error"
		status.Checks["store"] = "failed"
	default:
		status.Checks["store"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status.Status = "error"
			status.Checks["redis"] = "failed: " + err.Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	if status.Status == "error" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(w, status)
}
