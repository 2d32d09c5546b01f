// Supervisor orchestrating the child process and telemetry forwarding
package supervise

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trainops-supervisor/internal/config"
	"trainops-supervisor/internal/forwarder"
	"trainops-supervisor/internal/launcher"
	"trainops-supervisor/internal/telemetry"
)

// State tracks the run through its lifecycle. Transitions are strictly
// forward: Running -> ChildExited -> Finalizing -> Done.
type State string

const (
	StateRunning     State = "running"
	StateChildExited State = "child_exited"
	StateFinalizing  State = "finalizing"
	StateDone        State = "done"
)

// Supervisor owns one run: it launches the user script, forwards its
// output, and translates the child's result into the supervisor's own
// exit code. All process-wide run state (session, counters, outcome)
// lives here, constructed once at startup.
type Supervisor struct {
	cfg     *config.Config
	session *telemetry.Session
	fwd     *forwarder.Forwarder
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	pid     int
	outcome telemetry.Outcome
}

// New creates a Supervisor. remote may be nil for local-only runs; mirror
// is the unconditional local record (stdout, optionally plus a file).
func New(cfg *config.Config, session *telemetry.Session, remote, mirror forwarder.ChunkWriter, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		session: session,
		fwd:     forwarder.New(cfg, session, remote, mirror, logger),
		logger:  logger,
		state:   StateRunning,
	}
}

// Run executes the whole supervised lifecycle and returns the outcome.
// The returned outcome is computed exactly once; forwarder trouble is
// logged and counted but never changes it.
func (s *Supervisor) Run(ctx context.Context) telemetry.Outcome {
	path, err := launcher.Resolve(s.cfg.WorkspaceDir)
	if err != nil {
		s.logger.Error("cannot resolve entry point", "component", "supervisor", "error", err)
		return s.finish(telemetry.LaunchFailure(err.Error()))
	}

	child, err := launcher.Launch(path, s.cfg.WorkspaceDir)
	if err != nil {
		s.logger.Error("cannot launch entry point", "component", "supervisor", "path", path, "error", err)
		return s.finish(telemetry.LaunchFailure(err.Error()))
	}

	s.mu.Lock()
	s.pid = child.PID()
	s.mu.Unlock()
	s.logger.Info("child started", "component", "supervisor", "path", path, "pid", child.PID(), "run_id", s.session.RunID)

	// Forward platform-initiated termination to the child's process
	// group, giving it the grace period before a kill.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigs)
	go func() {
		for {
			select {
			case sig := <-sigs:
				s.logger.Info("forwarding signal to child", "component", "supervisor", "signal", sig)
				go child.Terminate(s.cfg.GracePeriod)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for exit concurrently with output draining; the stream only
	// reaches EOF once the child has exited and closed its descriptors.
	statusCh := make(chan launcher.Status, 1)
	go func() {
		statusCh <- child.Wait()
	}()

	// Blocks until end-of-stream.
	s.fwd.Run(child.Output())
	child.Output().Close()
	if rerr := s.fwd.ReadErr(); rerr != nil {
		// Degraded capture is logged, never escalated past the forwarder.
		s.logger.Warn("output stream ended abnormally", "component", "supervisor", "error", rerr)
	}

	status := <-statusCh
	s.setState(StateChildExited)
	s.logger.Info("child exited", "component", "supervisor",
		"code", status.Code, "signal", status.Signal)

	outcome := outcomeFromStatus(status)

	s.setState(StateFinalizing)
	drained := s.fwd.FinalFlush(s.cfg.FinalFlushTimeout, telemetry.RunStatus{
		RunID:     s.session.RunID,
		AttemptID: s.session.AttemptID,
		Outcome:   string(outcome.Kind),
		ExitCode:  outcome.ExitCode(),
		Timestamp: time.Now().UTC(),
	})
	if !drained {
		s.logger.Warn("exiting with undelivered telemetry; local mirror is complete",
			"component", "supervisor")
	}

	return s.finish(outcome)
}

// outcomeFromStatus translates the child's wait status. A wait error that
// is not an exit status means the supervisor itself lost track of the
// child, which is our fault, not the training job's.
func outcomeFromStatus(st launcher.Status) telemetry.Outcome {
	if st.WaitErr != nil {
		return telemetry.InternalFault(st.WaitErr.Error())
	}
	if st.Signaled {
		return telemetry.ChildSignaled(st.Signal)
	}
	return telemetry.ChildExit(st.Code)
}

func (s *Supervisor) finish(o telemetry.Outcome) telemetry.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDone {
		s.state = StateDone
		s.outcome = o
	}
	return s.outcome
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the child's process ID, or 0 before launch.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Outcome returns the recorded outcome; only meaningful once State is Done.
func (s *Supervisor) Outcome() (telemetry.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.state == StateDone
}

// Stats returns the forwarder counters.
func (s *Supervisor) Stats() forwarder.Stats {
	return s.fwd.Stats()
}

// Session returns the run's telemetry session.
func (s *Supervisor) Session() *telemetry.Session {
	return s.session
}
