package rws

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names a step of the run, used to tag failures.
type Stage string

const (
	StageInputs         Stage = "inputs"
	StageScope          Stage = "scope"
	StageCountry        Stage = "country"
	StageZones          Stage = "zones"
	StageAttribute      Stage = "attribute"
	StageBuffer         Stage = "buffer"
	StageZoneShares     Stage = "zone-shares"
	StageDominant       Stage = "dominant"
	StageBufferShares   Stage = "buffer-shares"
	StageRepresentative Stage = "representative"
)

// InputValidationError reports a missing or unusable input, detected before
// any geometry work.
type InputValidationError struct {
	Stage  Stage
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("rws: %s: invalid %s: %s", e.Stage, e.Field, e.Reason)
}

// AmbiguousScopeError reports a station set spanning more than one country.
type AmbiguousScopeError struct {
	Stage     Stage
	Countries []string
}

func (e *AmbiguousScopeError) Error() string {
	return fmt.Sprintf("rws: %s: stations span %d countries (%s); select one country",
		e.Stage, len(e.Countries), strings.Join(e.Countries, ", "))
}

// ZeroDenominatorError reports a national crop total that is zero or negative.
type ZeroDenominatorError struct {
	Stage Stage
	Total float64
}

func (e *ZeroDenominatorError) Error() string {
	return fmt.Sprintf("rws: %s: national crop area total is %v; no positive crop values in scope", e.Stage, e.Total)
}

// StageError wraps an engine or I/O failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("rws: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage tagged on err, if any.
func FailedStage(err error) (Stage, bool) {
	var (
		ive *InputValidationError
		ase *AmbiguousScopeError
		zde *ZeroDenominatorError
		se  *StageError
	)
	switch {
	case errors.As(err, &ive):
		return ive.Stage, true
	case errors.As(err, &ase):
		return ase.Stage, true
	case errors.As(err, &zde):
		return zde.Stage, true
	case errors.As(err, &se):
		return se.Stage, true
	default:
		return "", false
	}
}

// IsFatalData reports whether err is one of the input-data failures that a
// rerun with the same inputs cannot fix.
func IsFatalData(err error) bool {
	var (
		ive *InputValidationError
		ase *AmbiguousScopeError
		zde *ZeroDenominatorError
	)
	return errors.As(err, &ive) || errors.As(err, &ase) || errors.As(err, &zde)
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
