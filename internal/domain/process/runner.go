package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/logging"
)

// Handle is a running child process together with its capture goroutines.
type Handle struct {
	spec      Spec
	cmd       *exec.Cmd
	ptmx      *os.File
	log       *logging.Logger
	outputBuf *Buffer
	startedAt time.Time

	readers sync.WaitGroup

	mu       sync.RWMutex
	finished bool
	result   ExitResult

	done chan struct{}
}

// Start launches the process described by spec. Output is forwarded to the
// logger line by line and retained in a bounded buffer for diagnostics.
func Start(spec Spec, log *logging.Logger) (*Handle, error) {
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("empty command for %s", spec.Name)
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir

	// Set environment variables
	cmd.Env = os.Environ()
	for key, value := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	h := &Handle{
		spec:      spec,
		cmd:       cmd,
		log:       log.WithStage(spec.Name),
		outputBuf: NewBuffer(64 * 1024),
		done:      make(chan struct{}),
	}

	if spec.UsePTY {
		// pty.Start puts the child in its own session, so its process
		// group id equals its pid.
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", spec.Name, err)
		}
		h.ptmx = ptmx

		h.readers.Add(1)
		go h.forward("pty", ptmx)
	} else {
		// Children get their own process group so signals also reach
		// helpers they spawn.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("stdout pipe for %s: %w", spec.Name, err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("stderr pipe for %s: %w", spec.Name, err)
		}

		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", spec.Name, err)
		}

		h.readers.Add(2)
		go h.forward("stdout", stdout)
		go h.forward("stderr", stderr)
	}

	h.startedAt = time.Now()
	h.log.Info("process started",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("command", strings.Join(spec.Argv, " ")))

	go h.wait()

	return h, nil
}

// forward copies child output to the log and the diagnostic buffer.
func (h *Handle) forward(stream string, r io.Reader) {
	defer h.readers.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 256*1024)
	for scanner.Scan() {
		line := scanner.Text()
		h.outputBuf.Write([]byte(line + "\n"))
		h.log.Debug("child output", zap.String("stream", stream), zap.String("line", line))
	}
	// PTY masters report EIO once the child exits; pipes report EOF.
}

// wait reaps the child and records its exit result.
func (h *Handle) wait() {
	// Drain the output readers before Wait closes the pipes.
	h.readers.Wait()

	err := h.cmd.Wait()
	if h.ptmx != nil {
		h.ptmx.Close()
	}

	res := ExitResult{At: time.Now()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				res.Signaled = true
				res.Code = 128 + int(status.Signal())
			} else {
				res.Code = exitErr.ExitCode()
			}
		} else {
			res.Code = -1
			res.Err = err
		}
	}

	h.mu.Lock()
	h.finished = true
	h.result = res
	h.mu.Unlock()

	h.log.Info("process exited",
		zap.Int("code", res.Code),
		zap.Bool("signaled", res.Signaled))

	close(h.done)
}

// Done returns a channel closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the exit result. Valid after Done is closed.
func (h *Handle) Result() ExitResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result
}

// Running reports whether the process is still alive.
func (h *Handle) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.finished
}

// PID returns the child's process id, or 0 before launch.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Name returns the stage name the process was launched under.
func (h *Handle) Name() string {
	return h.spec.Name
}

// StartedAt returns when the process was launched.
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}

// RecentOutput returns the retained tail of the child's output.
func (h *Handle) RecentOutput() []byte {
	return h.outputBuf.Bytes()
}

// Describe returns the public view of the process.
func (h *Handle) Describe() Info {
	h.mu.RLock()
	defer h.mu.RUnlock()

	info := Info{
		Name:      h.spec.Name,
		PID:       h.PID(),
		Running:   !h.finished,
		StartedAt: h.startedAt,
	}
	if h.finished {
		code := h.result.Code
		info.ExitCode = &code
	}
	return info
}

// Signal delivers sig to the child's process group.
func (h *Handle) Signal(sig syscall.Signal) error {
	pid := h.PID()
	if pid <= 0 {
		return fmt.Errorf("process %s not started", h.spec.Name)
	}

	// Negative pid addresses the whole group.
	if err := syscall.Kill(-pid, sig); err != nil {
		return h.cmd.Process.Signal(sig)
	}
	return nil
}

// Terminate asks the process group to exit and escalates to SIGKILL once the
// grace period lapses. It blocks until the process has been reaped.
func (h *Handle) Terminate(grace time.Duration) {
	select {
	case <-h.done:
		return
	default:
	}

	h.log.Info("stopping process", zap.Duration("grace", grace))
	h.Signal(syscall.SIGTERM)

	select {
	case <-h.done:
	case <-time.After(grace):
		h.log.Warn("grace period lapsed, killing process group")
		h.Signal(syscall.SIGKILL)
		<-h.done
	}
}
