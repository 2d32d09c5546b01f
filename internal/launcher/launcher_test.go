package launcher

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// writeScript places a train.sh with the given body in dir.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, EntrypointName)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestResolve_Missing(t *testing.T) {
	_, err := Resolve(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing entry point")
	}
	var lerr *LaunchError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected LaunchError, got %T", err)
	}
}

func TestResolve_NotRegular(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, EntrypointName), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(dir); err == nil {
		t.Fatal("expected error for directory entry point")
	}
}

func TestResolve_Found(t *testing.T) {
	dir := t.TempDir()
	want := writeScript(t, dir, "true")
	got, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %s, want %s", got, want)
	}
}

func TestLaunch_CombinedOutputAndExitCode(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "echo out-line\necho err-line >&2\nexit 3")

	child, err := Launch(path, dir)
	if err != nil {
		t.Fatalf("Launch() returned error: %v", err)
	}
	out, err := io.ReadAll(child.Output())
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	st := child.Wait()

	if st.Signaled || st.Code != 3 {
		t.Errorf("status = %+v, want exit code 3", st)
	}
	text := string(out)
	if !strings.Contains(text, "out-line") || !strings.Contains(text, "err-line") {
		t.Errorf("combined output missing a stream: %q", text)
	}
	// Same descriptor, sequential writes: stdout line arrives first.
	if strings.Index(text, "out-line") > strings.Index(text, "err-line") {
		t.Errorf("output out of order: %q", text)
	}
}

func TestLaunch_ExitZero(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "exit 0")
	child, err := Launch(path, dir)
	if err != nil {
		t.Fatalf("Launch() returned error: %v", err)
	}
	io.Copy(io.Discard, child.Output())
	if st := child.Wait(); st.Code != 0 || st.Signaled || st.WaitErr != nil {
		t.Errorf("status = %+v, want clean zero exit", st)
	}
	if !child.Exited() {
		t.Error("Exited() = false after Wait")
	}
}

func TestWait_Signaled(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "kill -KILL $$")
	child, err := Launch(path, dir)
	if err != nil {
		t.Fatalf("Launch() returned error: %v", err)
	}
	io.Copy(io.Discard, child.Output())
	st := child.Wait()
	if !st.Signaled || st.Signal != int(syscall.SIGKILL) {
		t.Errorf("status = %+v, want SIGKILL death", st)
	}
}

func TestTerminate_GracefulExit(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "trap 'exit 7' TERM\nwhile true; do sleep 0.05; done")
	child, err := Launch(path, dir)
	if err != nil {
		t.Fatalf("Launch() returned error: %v", err)
	}
	go io.Copy(io.Discard, child.Output())

	// Give the shell a moment to install the trap.
	time.Sleep(200 * time.Millisecond)
	st := child.Terminate(5 * time.Second)
	if st.Signaled || st.Code != 7 {
		t.Errorf("status = %+v, want graceful exit 7", st)
	}
}

func TestTerminate_KillsAfterGrace(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "trap '' TERM\nwhile true; do sleep 0.05; done")
	child, err := Launch(path, dir)
	if err != nil {
		t.Fatalf("Launch() returned error: %v", err)
	}
	go io.Copy(io.Discard, child.Output())

	time.Sleep(200 * time.Millisecond)
	start := time.Now()
	st := child.Terminate(300 * time.Millisecond)
	if !st.Signaled || st.Signal != int(syscall.SIGKILL) {
		t.Errorf("status = %+v, want SIGKILL after grace period", st)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("Terminate returned before grace period: %s", elapsed)
	}
}
