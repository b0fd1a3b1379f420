package ir

import (
	"errors"
	"fmt"
)

// ErrNoDetectorsAvailable is returned by a scan when no detector produced a
// usable result. No report is fabricated in that case.
var ErrNoDetectorsAvailable = errors.New("no detectors available")

// ConfigurationError covers duplicate rule ids and malformed rule specs.
// It is fatal at startup.
type ConfigurationError struct {
	RuleID string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.RuleID != "" {
		msg += fmt.Sprintf(" (rule %s)", e.RuleID)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// DetectorError is local to one detector and never fails a scan.
type DetectorError struct {
	Detector string
	Err      error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector %s: %v", e.Detector, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }

// InvalidChangeProposalError rejects malformed input before evaluation.
// Statistics are not touched.
type InvalidChangeProposalError struct {
	Field  string
	Reason string
}

func (e *InvalidChangeProposalError) Error() string {
	return fmt.Sprintf("invalid change proposal: %s: %s", e.Field, e.Reason)
}
