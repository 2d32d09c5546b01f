package telemetry

import "fmt"

// OutcomeKind classifies how a supervised run ended.
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeChildExit     OutcomeKind = "child_exit"
	OutcomeChildSignaled OutcomeKind = "child_signaled"
	OutcomeLaunchFailure OutcomeKind = "launch_failure"
	OutcomeInternalFault OutcomeKind = "internal_fault"
)

// Reserved supervisor exit codes. The child's own exit code is passed
// through verbatim, so the reserved values sit at the top of the range
// where collisions with real training scripts are least likely.
const (
	ExitLaunchFailure = 254
	ExitInternalFault = 255
)

// Outcome is the terminal result of a run. It is computed exactly once
// when the supervisor reaches its Done state and is the sole determinant
// of the supervisor's own exit code. Telemetry delivery problems are
// deliberately not representable here.
type Outcome struct {
	Kind   OutcomeKind
	Code   int    // child exit code, valid for OutcomeChildExit
	Signal int    // terminating signal number, valid for OutcomeChildSignaled
	Reason string // human-readable detail for failure kinds
}

// Success returns the zero-code outcome.
func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

// ChildExit records a non-zero child exit code.
func ChildExit(code int) Outcome {
	if code == 0 {
		return Success()
	}
	return Outcome{Kind: OutcomeChildExit, Code: code}
}

// ChildSignaled records a child killed by a signal.
func ChildSignaled(sig int) Outcome {
	return Outcome{Kind: OutcomeChildSignaled, Signal: sig}
}

// LaunchFailure records a child that could not be started at all.
func LaunchFailure(reason string) Outcome {
	return Outcome{Kind: OutcomeLaunchFailure, Reason: reason}
}

// InternalFault records a supervisor fault unrelated to the child.
func InternalFault(reason string) Outcome {
	return Outcome{Kind: OutcomeInternalFault, Reason: reason}
}

// ExitCode maps the outcome to the supervisor's process exit code.
// Children killed by a signal map to 128+signal, following the shell
// convention.
func (o Outcome) ExitCode() int {
	switch o.Kind {
	case OutcomeSuccess:
		return 0
	case OutcomeChildExit:
		return o.Code
	case OutcomeChildSignaled:
		return 128 + o.Signal
	case OutcomeLaunchFailure:
		return ExitLaunchFailure
	default:
		return ExitInternalFault
	}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "success"
	case OutcomeChildExit:
		return fmt.Sprintf("child exited with code %d", o.Code)
	case OutcomeChildSignaled:
		return fmt.Sprintf("child killed by signal %d", o.Signal)
	case OutcomeLaunchFailure:
		return fmt.Sprintf("launch failure: %s", o.Reason)
	default:
		return fmt.Sprintf("internal fault: %s", o.Reason)
	}
}
