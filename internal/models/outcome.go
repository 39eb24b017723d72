package models

import (
	"fmt"
	"strings"
)

const (
	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

// ParseOutcome normalizes user input to OutcomeYes/OutcomeNo.
func ParseOutcome(raw string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case OutcomeYes:
		return OutcomeYes, nil
	case OutcomeNo:
		return OutcomeNo, nil
	default:
		return "", fmt.Errorf("%w: got %q, want YES or NO", ErrInvalidOutcome, raw)
	}
}
