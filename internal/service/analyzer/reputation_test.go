package analyzer

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

func fastAssignments(worker string, n int, duration string) []models.Assignment {
	out := make([]models.Assignment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Assignment{
			AssignmentID: fmt.Sprintf("%s-%d", worker, i),
			WorkerID:     worker,
			Duration:     duration,
		})
	}
	return out
}

func TestAggregateRepeatThreshold(t *testing.T) {
	var batch []models.Assignment
	batch = append(batch, fastAssignments("W10", 10, "0 days 00:04:59")...)
	batch = append(batch, fastAssignments("W9", 9, "0 days 00:04:59")...)
	batch = append(batch, fastAssignments("SLOW", 20, "0 days 00:05:01")...)

	bans := Aggregate(batch, DefaultFastThresholdMinutes, DefaultBanRepeatThreshold, zerolog.Nop())

	if len(bans) != 1 {
		t.Fatalf("bans = %+v, want exactly W10", bans)
	}
	if bans[0].WorkerID != "W10" || bans[0].FastCount != 10 {
		t.Errorf("bans[0] = %+v, want W10 with 10", bans[0])
	}
}

func TestAggregateThresholdIsInclusive(t *testing.T) {
	bans := Aggregate(fastAssignments("W1", 2, "0 days 00:05:00"), 5, 2, zerolog.Nop())
	if len(bans) != 1 {
		t.Errorf("bans = %+v, want W1 banned at exactly the threshold", bans)
	}
}

func TestAggregateSortedAndSkipsMalformed(t *testing.T) {
	var batch []models.Assignment
	batch = append(batch, fastAssignments("B", 2, "0 days 00:01:00")...)
	batch = append(batch, fastAssignments("A", 2, "0 days 00:01:00")...)
	batch = append(batch, fastAssignments("C", 5, "garbage")...)

	bans := Aggregate(batch, 5, 2, zerolog.Nop())

	if len(bans) != 2 || bans[0].WorkerID != "A" || bans[1].WorkerID != "B" {
		t.Errorf("bans = %+v, want A then B", bans)
	}
}

func TestAggregateRecordsCountsUndecodableRecords(t *testing.T) {
	records := []models.AssignmentRecord{
		{AssignmentID: "1", WorkerID: "W", Duration: "0 days 00:01:00"},
		{AssignmentID: "2", WorkerID: "W", Duration: "0 days 00:01:00"},
		{AssignmentID: "3", Duration: "0 days 00:01:00"},
	}

	bans := AggregateRecords(records, 5, 2, zerolog.Nop())
	if len(bans) != 1 || bans[0].WorkerID != "W" {
		t.Errorf("bans = %+v, want W", bans)
	}
}
