package safety

import (
	"errors"
	"fmt"
)

type RoundStatus string

const (
	// StatusConforme: every check passed.
	StatusConforme RoundStatus = "conforme"
	// StatusDefectuositeMineure: only mineur checks failed; the vehicle
	// may operate during the repair grace period.
	StatusDefectuositeMineure RoundStatus = "defectuosite_mineure"
	// StatusNonConforme: at least one majeur check failed; the vehicle
	// must not be operated.
	StatusNonConforme RoundStatus = "non_conforme"
)

var ErrUnknownCheck = errors.New("unknown safety check id")

// RoundOutcome is the classification of one completed safety round.
type RoundOutcome struct {
	Status        RoundStatus `json:"status"`
	FailedMajeurs []string    `json:"failedMajeurs"`
	FailedMineurs []string    `json:"failedMineurs"`
}

// EvaluateRound classifies a completed round from its per-check
// results. Results must cover known check ids only; an unknown id is
// surfaced rather than skipped so a checklist mismatch between client
// and server cannot silently pass a defective vehicle.
func EvaluateRound(results map[string]bool) (RoundOutcome, error) {
	out := RoundOutcome{Status: StatusConforme}
	// Walk the checklist rather than the results map so the failure
	// lists come out in display order.
	for _, c := range checklist {
		passed, present := results[c.ID]
		if !present || passed {
			continue
		}
		switch c.Severity {
		case Majeur:
			out.FailedMajeurs = append(out.FailedMajeurs, c.ID)
		case Mineur:
			out.FailedMineurs = append(out.FailedMineurs, c.ID)
		}
	}
	for id := range results {
		if _, ok := severityByID[id]; !ok {
			return RoundOutcome{}, fmt.Errorf("%w: %q", ErrUnknownCheck, id)
		}
	}
	switch {
	case len(out.FailedMajeurs) > 0:
		out.Status = StatusNonConforme
	case len(out.FailedMineurs) > 0:
		out.Status = StatusDefectuositeMineure
	}
	return out, nil
}
