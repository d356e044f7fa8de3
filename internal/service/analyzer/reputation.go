package analyzer

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

const (
	DefaultFastThresholdMinutes = 5
	DefaultBanRepeatThreshold   = 10
)

// Aggregate counts, per worker, the assignments completed in at most
// fastThresholdMinutes and returns the workers whose count reaches repeatThreshold.
// The counters live only for the duration of the call.
func Aggregate(assignments []models.Assignment, fastThresholdMinutes float64, repeatThreshold int, logger zerolog.Logger) []models.BanDecision {
	fast := make(map[string]int)

	for _, a := range assignments {
		minutes, err := ParseDurationMinutes(a.Duration)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("assignment_id", a.AssignmentID).
				Str("worker_id", a.WorkerID).
				Msg("Skipping assignment with malformed duration")
			continue
		}
		if minutes <= fastThresholdMinutes {
			fast[a.WorkerID]++
		}
	}

	var bans []models.BanDecision
	for workerID, count := range fast {
		if count >= repeatThreshold {
			bans = append(bans, models.BanDecision{WorkerID: workerID, FastCount: count})
		}
	}

	sort.Slice(bans, func(i, j int) bool {
		return bans[i].WorkerID < bans[j].WorkerID
	})

	return bans
}

// AggregateRecords is Aggregate over raw records. Only the worker ID and duration
// are needed, so records that fail full decoding still count.
func AggregateRecords(records []models.AssignmentRecord, fastThresholdMinutes float64, repeatThreshold int, logger zerolog.Logger) []models.BanDecision {
	assignments := make([]models.Assignment, 0, len(records))
	for _, r := range records {
		if r.WorkerID == "" {
			continue
		}
		assignments = append(assignments, models.Assignment{
			AssignmentID: r.AssignmentID,
			WorkerID:     r.WorkerID,
			Duration:     r.Duration,
		})
	}
	return Aggregate(assignments, fastThresholdMinutes, repeatThreshold, logger)
}
