package httpd

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jinzhu/copier"

	"github.com/RubachokBoss/hit-review/internal/models"
	"github.com/RubachokBoss/hit-review/internal/service"
)

func decodeReviewRequest(r *http.Request) (models.ReviewRequest, error) {
	var body models.RunReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return models.ReviewRequest{}, err
	}

	var req models.ReviewRequest
	if err := copier.Copy(&req, &body); err != nil {
		return models.ReviewRequest{}, err
	}
	return req, nil
}

func (h *Handler) RunReview(w http.ResponseWriter, r *http.Request) {
	req, err := decodeReviewRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, err := h.reviewService.RunReview(r.Context(), req)
	if err != nil && outcome == nil {
		h.handleReviewError(w, err)
		return
	}

	response := map[string]interface{}{
		"run":      toRunResponse(outcome.Run),
		"rejected": outcome.RejectedIDs(),
		"bans":     outcome.Bans,
		"verdicts": outcome.Verdicts,
	}

	writeSuccess(w, response)
}

func (h *Handler) RunReviewAsync(w http.ResponseWriter, r *http.Request) {
	req, err := decodeReviewRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.reviewService.RequestReview(r.Context(), req); err != nil {
		h.handleReviewError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"message": "Review queued",
	})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := getIntQueryParam(r, "limit", 20)
	offset := getIntQueryParam(r, "offset", 0)

	runs, total, err := h.reviewService.ListRuns(r.Context(), limit, offset)
	if err != nil {
		h.handleReviewError(w, err)
		return
	}

	response := models.ListRunsResponse{
		Runs:   make([]models.ReviewRunResponse, 0, len(runs)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range runs {
		response.Runs = append(response.Runs, toRunResponse(&runs[i]))
	}

	writeSuccess(w, response)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	run, err := h.reviewService.GetRun(r.Context(), runID)
	if err != nil {
		h.handleReviewError(w, err)
		return
	}

	writeSuccess(w, toRunResponse(run))
}

func (h *Handler) GetDecisions(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	decisions, err := h.reviewService.GetDecisions(r.Context(), runID)
	if err != nil {
		h.handleReviewError(w, err)
		return
	}
	if decisions == nil {
		decisions = []models.DecisionRecord{}
	}

	writeSuccess(w, decisions)
}

func (h *Handler) GetBans(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")

	bans, err := h.reviewService.GetBans(r.Context(), runID)
	if err != nil {
		h.handleReviewError(w, err)
		return
	}
	if bans == nil {
		bans = []models.BanRecord{}
	}

	writeSuccess(w, bans)
}

func toRunResponse(run *models.ReviewRun) models.ReviewRunResponse {
	var response models.ReviewRunResponse
	if run == nil {
		return response
	}
	_ = copier.Copy(&response, run)
	return response
}

func (h *Handler) handleReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRunID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		h.logger.Error().Err(err).Msg("Assignment store error")
		writeError(w, http.StatusBadGateway, "Assignment store unavailable")
	case errors.Is(err, service.ErrQueueUnavailable):
		h.logger.Error().Err(err).Msg("Queue error")
		writeError(w, http.StatusServiceUnavailable, "Review queue unavailable")
	default:
		h.logger.Error().Err(err).Msg("Review error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
