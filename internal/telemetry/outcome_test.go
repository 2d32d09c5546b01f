package telemetry

import "testing"

func TestOutcome_ExitCode(t *testing.T) {
	cases := []struct {
		name    string
		outcome Outcome
		want    int
	}{
		{"success", Success(), 0},
		{"child exit passes through", ChildExit(3), 3},
		{"child exit zero is success", ChildExit(0), 0},
		{"signaled maps to 128+n", ChildSignaled(9), 137},
		{"launch failure reserved", LaunchFailure("missing"), ExitLaunchFailure},
		{"internal fault reserved", InternalFault("lost child"), ExitInternalFault},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.outcome.ExitCode(); got != tc.want {
				t.Errorf("ExitCode() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestChildExit_ZeroIsSuccessKind(t *testing.T) {
	if o := ChildExit(0); o.Kind != OutcomeSuccess {
		t.Errorf("ChildExit(0).Kind = %s, want %s", o.Kind, OutcomeSuccess)
	}
	if o := ChildExit(1); o.Kind != OutcomeChildExit {
		t.Errorf("ChildExit(1).Kind = %s, want %s", o.Kind, OutcomeChildExit)
	}
}
