package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RubachokBoss/hit-review/internal/models"
)

// EvaluateAssignment returns the verdict for a posted assignment record without applying it.
func (h *Handler) EvaluateAssignment(w http.ResponseWriter, r *http.Request) {
	var record models.AssignmentRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	verdict, err := h.reviewService.EvaluateRecord(r.Context(), record)
	if err != nil {
		var malformed *models.MalformedAssignmentError
		if errors.As(err, &malformed) {
			writeError(w, http.StatusUnprocessableEntity, malformed.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Failed to evaluate assignment")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSuccess(w, models.EvaluateAssignmentResponse{
		AssignmentID:    verdict.AssignmentID,
		WorkerID:        verdict.WorkerID,
		Decision:        verdict.Decision.String(),
		Reject:          verdict.ShouldReject(),
		Reasons:         verdict.Reasons,
		DurationMinutes: verdict.DurationMinutes,
	})
}
