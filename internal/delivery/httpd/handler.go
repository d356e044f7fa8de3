package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/RubachokBoss/hit-review/internal/service"
)

// WorkerStatsProvider exposes queue worker load for the status endpoint.
type WorkerStatsProvider interface {
	ActiveWorkers() int
	QueueLength() int
}

type Handler struct {
	reviewService service.ReviewService
	workerStats   WorkerStatsProvider
	logger        zerolog.Logger
}

func NewHandler(
	reviewService service.ReviewService,
	workerStats WorkerStatsProvider,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		reviewService: reviewService,
		workerStats:   workerStats,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/status", h.GetServiceStatus)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/reviews", func(r chi.Router) {
			r.Post("/", h.RunReview)
			r.Post("/async", h.RunReviewAsync)
			r.Get("/", h.ListRuns)
			r.Get("/{run_id}", h.GetRun)
			r.Get("/{run_id}/decisions", h.GetDecisions)
			r.Get("/{run_id}/bans", h.GetBans)
		})

		api.Route("/assignments", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateAssignment)
		})
	})
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := cast.ToIntE(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}
