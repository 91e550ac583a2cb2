package main

import (
	"errors"

	"github.com/sells-group/rws-cli/internal/rws"
)

// diagnose renders err as one line naming the failing stage and condition.
func diagnose(err error) string {
	var ive *rws.InputValidationError
	var ase *rws.AmbiguousScopeError
	var zde *rws.ZeroDenominatorError
	switch {
	case errors.As(err, &ive):
		return "error: " + ive.Error()
	case errors.As(err, &ase):
		return "error: " + ase.Error() + " with --country"
	case errors.As(err, &zde):
		return "error: " + zde.Error()
	}
	if stage, ok := rws.FailedStage(err); ok {
		return "error: stage " + string(stage) + " failed: " + err.Error()
	}
	return "error: " + err.Error()
}
