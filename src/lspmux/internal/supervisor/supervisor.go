// Package supervisor owns OS-level spawning and termination of language
// server processes. No other component may start or stop a server process.
package supervisor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/entity"
	"github.com/lspmux/lspmux/src/lspmux/internal/errors"
)

// Module provides a module to inject using fx.
var Module = fx.Provide(New)

// Process is a handle to one running language server. The session owning the
// process reads and writes its pipes; liveness methods let the session's
// receive loop distinguish a clean stdout close from a crash.
type Process interface {
	// Pid returns the OS process id.
	Pid() int
	// Stdin is the pipe connected to the server's standard input.
	Stdin() io.WriteCloser
	// Stdout is the pipe connected to the server's standard output.
	Stdout() io.Reader
	// Stderr is the pipe connected to the server's standard error.
	Stderr() io.Reader
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Exited reports whether the process has exited.
	Exited() bool
	// ExitErr returns the wait error after exit: nil for a clean exit,
	// an *exec.ExitError for a non-zero status. Nil while running.
	ExitErr() error
	// Signal delivers a signal to the process.
	Signal(sig os.Signal) error
	// Kill forcefully terminates the process.
	Kill() error
}

// Supervisor spawns and terminates server processes.
type Supervisor interface {
	// Spawn starts the configured binary with the workspace root as its
	// working directory. It fails with *errors.SpawnError when the
	// executable is missing or the directory is invalid.
	Spawn(ctx context.Context, cwd string, cfg entity.LaunchConfig) (Process, error)
	// Terminate signals the process to exit, waits up to grace, then kills.
	// Terminating an already exited process is a no-op.
	Terminate(ctx context.Context, proc Process, grace time.Duration) error
}

// Params define values to be used by the Supervisor.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
}

type supervisor struct {
	logger *zap.SugaredLogger
}

// New creates a new Supervisor.
func New(p Params) Supervisor {
	return &supervisor{logger: p.Logger}
}

func (s *supervisor) Spawn(ctx context.Context, cwd string, cfg entity.LaunchConfig) (Process, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), cfg.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &errors.SpawnError{Command: cfg.Command, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &errors.SpawnError{Command: cfg.Command, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &errors.SpawnError{Command: cfg.Command, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &errors.SpawnError{Command: cfg.Command, Err: err}
	}
	s.logger.Infow("spawned language server",
		"command", cfg.Command,
		"args", cfg.Args,
		"cwd", cwd,
		"pid", cmd.Process.Pid,
	)

	proc := &osProcess{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}
	go proc.wait()
	return proc, nil
}

func (s *supervisor) Terminate(ctx context.Context, proc Process, grace time.Duration) error {
	if proc.Exited() {
		return nil
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		// Process may have exited between the check and the signal.
		if proc.Exited() {
			return nil
		}
		return err
	}

	select {
	case <-proc.Done():
		return nil
	case <-ctx.Done():
	case <-time.After(grace):
	}

	s.logger.Warnw("language server did not exit within grace period, killing",
		"pid", proc.Pid(),
		"grace", grace,
	)
	if err := proc.Kill(); err != nil && !proc.Exited() {
		return err
	}
	<-proc.Done()
	return nil
}

type osProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader

	mu      sync.Mutex
	exitErr error
	exited  bool
	done    chan struct{}
}

func (p *osProcess) wait() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.exitErr = err
	p.exited = true
	p.mu.Unlock()
	close(p.done)
}

func (p *osProcess) Pid() int { return p.cmd.Process.Pid }

func (p *osProcess) Stdin() io.WriteCloser { return p.stdin }

func (p *osProcess) Stdout() io.Reader { return p.stdout }

func (p *osProcess) Stderr() io.Reader { return p.stderr }

func (p *osProcess) Done() <-chan struct{} { return p.done }

func (p *osProcess) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *osProcess) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exited {
		return nil
	}
	return p.exitErr
}

func (p *osProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p *osProcess) Kill() error {
	return p.cmd.Process.Kill()
}
