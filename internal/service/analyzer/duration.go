package analyzer

import (
	"fmt"
	"strconv"
	"strings"
)

// MalformedDurationError is returned when a duration string does not end
// with an HH:MM:SS clock component.
type MalformedDurationError struct {
	Value string
}

func (e *MalformedDurationError) Error() string {
	return fmt.Sprintf("malformed duration %q", e.Value)
}

// ParseDurationMinutes converts "<days> days HH:MM:SS" into fractional minutes.
// The day count is ignored, only the clock component is converted.
func ParseDurationMinutes(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, &MalformedDurationError{Value: s}
	}

	parts := strings.Split(fields[len(fields)-1], ":")
	if len(parts) != 3 {
		return 0, &MalformedDurationError{Value: s}
	}

	var clock [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, &MalformedDurationError{Value: s}
		}
		clock[i] = n
	}

	return float64(clock[0]*60+clock[1]) + float64(clock[2])/60, nil
}
