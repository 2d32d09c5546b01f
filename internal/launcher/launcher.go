// Package launcher resolves and runs the user training script as a child
// process, exposing its combined output stream and exit status.
package launcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// EntrypointName is the fixed file name convention for the user script.
// The packaging Dockerfile copies the user's training script to this name
// inside the workspace directory; there is no fallback and no search path.
const EntrypointName = "train.sh"

// LaunchError marks failures that happened before or during spawn, before
// the child had any chance to run. They are reported distinctly from a
// failing training script.
type LaunchError struct {
	Reason string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Resolve locates the user entry point inside dir. A missing or
// non-regular file is a LaunchError, surfaced immediately and never
// retried.
func Resolve(dir string) (string, error) {
	path := filepath.Join(dir, EntrypointName)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &LaunchError{Reason: fmt.Sprintf("entry point %s not found", path)}
		}
		return "", &LaunchError{Reason: fmt.Sprintf("cannot stat entry point %s", path), Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &LaunchError{Reason: fmt.Sprintf("entry point %s is not a regular file", path)}
	}
	return path, nil
}

// Status is the observed termination state of the child.
type Status struct {
	Code     int // exit code, valid when Signal == 0
	Signal   int // terminating signal number, 0 if exited normally
	WaitErr  error
	Signaled bool
}

// Child is a handle to the spawned script. It is owned by a single
// goroutine for Wait; Signal and Output may be used concurrently.
type Child struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	waitMu sync.Mutex
	done   chan struct{}
	status Status
}

// Launch starts the script at path with stdout and stderr joined into a
// single pipe, so the capture loop sees one ordered stream. The read end
// is available before the child can fill the pipe buffer, and the child
// runs in its own process group so forwarded signals reach the whole
// script, not just the shell.
func Launch(path string, dir string) (*Child, error) {
	cmd := exec.Command("/bin/sh", path)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Reason: "cannot create output pipe", Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, &LaunchError{Reason: fmt.Sprintf("cannot start %s", path), Err: err}
	}

	// The child holds its own copies of the write end; closing ours makes
	// the read end reach EOF once the child and its descendants exit.
	pw.Close()

	return &Child{cmd: cmd, out: pr, done: make(chan struct{})}, nil
}

// Output returns the combined stdout+stderr stream of the child. It
// reaches EOF when the child (and anything it spawned that inherited the
// descriptors) has exited.
func (c *Child) Output() io.ReadCloser {
	return c.out
}

// PID returns the child's process ID.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// Wait blocks until the child terminates and returns its status. It is
// safe to call more than once; later calls return the recorded status.
func (c *Child) Wait() Status {
	c.waitMu.Lock()
	defer c.waitMu.Unlock()

	select {
	case <-c.done:
		return c.status
	default:
	}

	err := c.cmd.Wait()
	st := Status{}
	if err == nil {
		st.Code = 0
	} else if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			st.Signaled = true
			st.Signal = int(ws.Signal())
		} else {
			st.Code = exitErr.ExitCode()
		}
	} else {
		st.WaitErr = err
	}
	c.status = st
	close(c.done)
	return st
}

// Exited reports whether the child's exit status is already known.
func (c *Child) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Signal forwards sig to the child's process group.
func (c *Child) Signal(sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return fmt.Errorf("unsupported signal %v", sig)
	}
	// Negative pid targets the process group.
	return syscall.Kill(-c.cmd.Process.Pid, s)
}

// Terminate forwards SIGTERM and, if the child is still running after the
// grace period, kills its process group. Returns once the child is gone.
func (c *Child) Terminate(grace time.Duration) Status {
	_ = c.Signal(syscall.SIGTERM)

	// Reap the exit even when no other goroutine is in Wait, so a child
	// honoring the signal does not make us sit out the full grace period.
	go c.Wait()

	select {
	case <-c.done:
		return c.status
	case <-time.After(grace):
	}

	_ = syscall.Kill(-c.cmd.Process.Pid, syscall.SIGKILL)
	return c.Wait()
}
