package driver

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/codedesk/agentlink/internal/ndjson"
	"github.com/codedesk/agentlink/internal/procattr"
)

// marshaler is anything that can serialize itself to one JSON line.
type marshaler interface {
	Marshal() ([]byte, error)
}

// processManager owns the agent subprocess and its pipes.
type processManager struct {
	stdin    io.WriteCloser
	stdout   io.ReadCloser
	stderr   io.ReadCloser
	cmd      *exec.Cmd
	writer   *ndjson.Writer
	tail     *tailBuffer
	cfg      Config
	mu       sync.Mutex
	started  bool
	stopping bool

	// Exit reaping is funneled through waitOnce; exec.Cmd.Wait must not
	// be called concurrently.
	waitOnce sync.Once
	exitCode int
}

func newProcessManager(cfg Config) *processManager {
	return &processManager{
		cfg:  cfg,
		tail: newTailBuffer(4096),
	}
}

// Start spawns the agent process with the given arguments.
func (pm *processManager) Start(ctx context.Context, args []string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.started {
		return errors.New("process already started")
	}

	pm.cmd = exec.CommandContext(ctx, pm.cfg.Executable, args...)

	// Process group for orphan prevention.
	procattr.Set(pm.cmd)

	pm.cmd.Env = buildEnv(pm.cfg.Env)

	if len(pm.cfg.WorkspaceRoots) > 0 {
		pm.cmd.Dir = pm.cfg.WorkspaceRoots[0]
	}

	var err error
	pm.stdin, err = pm.cmd.StdinPipe()
	if err != nil {
		return &ProcessError{Message: "failed to create stdin pipe", Cause: err}
	}

	pm.stdout, err = pm.cmd.StdoutPipe()
	if err != nil {
		return &ProcessError{Message: "failed to create stdout pipe", Cause: err}
	}

	pm.stderr, err = pm.cmd.StderrPipe()
	if err != nil {
		return &ProcessError{Message: "failed to create stderr pipe", Cause: err}
	}

	if err := pm.cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.EACCES) {
			return &SpawnError{Path: pm.cfg.Executable, Cause: err}
		}
		return &ProcessError{Message: "failed to start agent process", Cause: err}
	}

	pm.writer = ndjson.NewWriter(pm.stdin)
	pm.started = true

	go pm.stderrLoop()

	return nil
}

// buildEnv passes the parent environment through, stripping the nesting
// marker so the child does not think it is running inside itself.
func buildEnv(extra map[string]string) []string {
	env := make([]string, 0, len(os.Environ())+len(extra))
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, nestedMarkerEnv+"=") {
			continue
		}
		env = append(env, kv)
	}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// Stdout returns the raw output stream.
func (pm *processManager) Stdout() io.Reader {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.stdout
}

// WriteMessage writes one JSON line to the agent's stdin.
func (pm *processManager) WriteMessage(m marshaler) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if !pm.started {
		return ErrNotStarted
	}
	if pm.stopping {
		return ErrStopping
	}

	line, err := m.Marshal()
	if err != nil {
		return err
	}
	return pm.writer.WriteRaw(line)
}

// StderrTail returns the most recent stderr output, for error-message
// extraction after an abnormal exit.
func (pm *processManager) StderrTail() []byte {
	return pm.tail.Bytes()
}

// stderrLoop drains stderr into the bounded tail and the optional handler.
func (pm *processManager) stderrLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := pm.stderr.Read(buf)
		if n > 0 {
			pm.tail.Write(buf[:n])
			if pm.cfg.StderrHandler != nil {
				pm.cfg.StderrHandler(buf[:n])
			}
		}
		if err != nil {
			return
		}
	}
}

// Wait blocks until the process exits and returns its exit code.
// -1 means the process was killed or never reported a code. Safe to call
// from multiple goroutines; the first caller reaps, the rest observe.
func (pm *processManager) Wait() int {
	pm.waitOnce.Do(func() {
		err := pm.cmd.Wait()
		if err == nil {
			pm.exitCode = 0
			return
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			pm.exitCode = exitErr.ExitCode()
			return
		}
		pm.exitCode = -1
	})
	return pm.exitCode
}

// Interrupt signals the process group without tearing the process down.
func (pm *processManager) Interrupt() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.cmd == nil || pm.cmd.Process == nil {
		return ErrNotStarted
	}
	return procattr.SignalGroup(pm.cmd.Process, syscall.SIGINT)
}

// Stop shuts the process down: close stdin, wait briefly, escalate to
// SIGTERM on the group, then SIGKILL.
func (pm *processManager) Stop() error {
	pm.mu.Lock()
	if !pm.started || pm.stopping {
		pm.mu.Unlock()
		return nil
	}
	pm.stopping = true
	pm.mu.Unlock()

	if pm.stdin != nil {
		pm.stdin.Close()
	}

	done := make(chan struct{})
	go func() {
		pm.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(500 * time.Millisecond):
	}

	if pm.cmd.Process != nil {
		_ = procattr.SignalGroup(pm.cmd.Process, syscall.SIGTERM)
	}

	select {
	case <-done:
		return nil
	case <-time.After(500 * time.Millisecond):
	}

	if pm.cmd.Process != nil {
		_ = procattr.KillGroup(pm.cmd.Process)
	}

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
	}

	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
}

func (t *tailBuffer) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]byte, len(t.buf))
	copy(out, t.buf)
	return out
}
