package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/lspmux/lspmux/src/lspmux/internal/supervisor"
)

// FakeHandler produces the result or error for one request method.
type FakeHandler func(params json.RawMessage) (interface{}, error)

// FakeServer is an in-process language server speaking framed JSON-RPC over
// pipes. Its process handle plugs into a session in place of a spawned binary.
type FakeServer struct {
	proc *FakeProcess
	conn jsonrpc2.Conn

	mu            sync.Mutex
	handlers      map[string]FakeHandler
	silent        map[string]struct{}
	notifications []string

	// Quiescence tracking: bytes the client has finished writing to stdin
	// versus bytes the serve loop has consumed, plus whether the loop is
	// parked in a read. Together these tell Notifications when every frame
	// sent so far has been fully dispatched.
	ioMu      sync.Mutex
	written   int64
	delivered int64
	inRead    bool
	readDead  bool
}

// FakeServerOption customizes a FakeServer before it starts serving.
type FakeServerOption func(*FakeServer)

// WithHandler overrides the response for one request method.
func WithHandler(method string, h FakeHandler) FakeServerOption {
	return func(s *FakeServer) {
		s.handlers[method] = h
	}
}

// WithSilentMethod makes the server swallow requests for the method without
// ever replying, to exercise client-side timeouts.
func WithSilentMethod(method string) FakeServerOption {
	return func(s *FakeServer) {
		s.silent[method] = struct{}{}
	}
}

// NewFakeServer starts a fake language server. By default it answers
// initialize with minimal capabilities, shutdown with null, and exits on the
// exit notification.
func NewFakeServer(opts ...FakeServerOption) *FakeServer {
	s := &FakeServer{
		proc:     NewFakeProcess(),
		handlers: make(map[string]FakeHandler),
		silent:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	stream := jsonrpc2.NewStream(serverPipe{
		Reader: s.proc.stdinR,
		writer: s.proc.stdoutW,
		server: s,
	})
	s.conn = jsonrpc2.NewConn(stream)
	s.conn.Go(context.Background(), s.handle)
	return s
}

// Process returns the process handle to hand to a session.
func (s *FakeServer) Process() supervisor.Process {
	return &countingProcess{FakeProcess: s.proc, server: s}
}

// Notify pushes a server-initiated notification to the client.
func (s *FakeServer) Notify(ctx context.Context, method string, params interface{}) error {
	return s.conn.Notify(ctx, method, params)
}

// Inject frames the given body and writes it straight to the client,
// bypassing the connection, for message shapes the connection cannot produce
// itself (null or string request ids). Not safe concurrently with replies.
func (s *FakeServer) Inject(body string) error {
	_, err := fmt.Fprintf(s.proc.stdoutW, "Content-Length: %d\r\n\r\n%s", len(body), body)
	return err
}

// Crash abruptly terminates the server as if the process died.
func (s *FakeServer) Crash() {
	s.proc.Exit(errFakeCrash{})
}

// Notifications returns the notification methods received so far, in order.
// It waits for frames already written by the client to finish dispatching, so
// a notification whose Send has returned is visible to the caller.
func (s *FakeServer) Notifications() []string {
	s.waitQuiescent()
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notifications...)
}

// waitQuiescent blocks until the serve loop has consumed and dispatched every
// byte the client has finished writing, the loop has died, or a deadline
// passes. The loop is quiescent when it is parked in a read with nothing left
// in flight: dispatch happens between reads, so parking implies the previous
// frame's handler has run.
func (s *FakeServer) waitQuiescent() {
	deadline := time.Now().Add(3 * time.Second)
	for {
		s.ioMu.Lock()
		idle := s.readDead || (s.inRead && s.delivered == s.written)
		s.ioMu.Unlock()
		if idle || time.Now().After(deadline) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *FakeServer) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	method := req.Method()

	if _, ok := req.(*jsonrpc2.Notification); ok {
		s.mu.Lock()
		s.notifications = append(s.notifications, method)
		s.mu.Unlock()
		if method == protocol.MethodExit {
			s.proc.Exit(nil)
		}
		return nil
	}

	s.mu.Lock()
	_, mute := s.silent[method]
	h := s.handlers[method]
	s.mu.Unlock()

	if mute {
		return nil
	}
	if h != nil {
		result, err := h(req.Params())
		return reply(ctx, result, err)
	}

	switch method {
	case protocol.MethodInitialize:
		return reply(ctx, protocol.InitializeResult{
			Capabilities: protocol.ServerCapabilities{
				DefinitionProvider: true,
				ReferencesProvider: true,
				HoverProvider:      true,
			},
		}, nil)
	case protocol.MethodShutdown:
		return reply(ctx, nil, nil)
	default:
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.MethodNotFound, "unhandled method "+method))
	}
}

// serverPipe joins the server-facing ends of the process pipes into one stream.
type serverPipe struct {
	io.Reader
	writer io.WriteCloser
	server *FakeServer
}

func (p serverPipe) Read(b []byte) (int, error) {
	p.server.ioMu.Lock()
	p.server.inRead = true
	p.server.ioMu.Unlock()

	n, err := p.Reader.Read(b)

	p.server.ioMu.Lock()
	p.server.inRead = false
	p.server.delivered += int64(n)
	if err != nil {
		p.server.readDead = true
	}
	p.server.ioMu.Unlock()
	return n, err
}

func (p serverPipe) Write(b []byte) (int, error) { return p.writer.Write(b) }

func (p serverPipe) Close() error { return p.writer.Close() }

// countingProcess wraps the fake process so stdin writes are tallied for
// quiescence tracking.
type countingProcess struct {
	*FakeProcess
	server *FakeServer
}

func (p *countingProcess) Stdin() io.WriteCloser {
	return &countingWriter{w: p.FakeProcess.Stdin(), server: p.server}
}

type countingWriter struct {
	w      io.WriteCloser
	server *FakeServer
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.w.Write(b)
	w.server.ioMu.Lock()
	w.server.written += int64(n)
	w.server.ioMu.Unlock()
	return n, err
}

func (w *countingWriter) Close() error { return w.w.Close() }

type errFakeCrash struct{}

func (errFakeCrash) Error() string { return "fake server crashed" }

// FakeProcess implements the process handle over in-memory pipes.
type FakeProcess struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter

	mu       sync.Mutex
	exited   bool
	exitErr  error
	done     chan struct{}
	exitOnce sync.Once
}

// NewFakeProcess builds a process handle with connected pipes and no server
// behind it. Tests that need protocol behavior use NewFakeServer instead.
func NewFakeProcess() *FakeProcess {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	return &FakeProcess{
		stdinR:  stdinR,
		stdinW:  stdinW,
		stdoutR: stdoutR,
		stdoutW: stdoutW,
		done:    make(chan struct{}),
	}
}

// Exit simulates process termination with the given wait error.
func (p *FakeProcess) Exit(err error) {
	p.exitOnce.Do(func() {
		p.mu.Lock()
		p.exited = true
		p.exitErr = err
		p.mu.Unlock()

		p.stdinR.Close()
		p.stdinW.Close()
		p.stdoutW.Close()
		p.stdoutR.Close()
		close(p.done)
	})
}

// Pid returns a fixed fake pid.
func (p *FakeProcess) Pid() int { return 4242 }

// Stdin is the pipe the session writes requests to.
func (p *FakeProcess) Stdin() io.WriteCloser { return p.stdinW }

// Stdout is the pipe the session reads responses from.
func (p *FakeProcess) Stdout() io.Reader { return p.stdoutR }

// Stderr is an always-empty pipe.
func (p *FakeProcess) Stderr() io.Reader { return emptyReader{} }

// Done is closed once Exit has been called.
func (p *FakeProcess) Done() <-chan struct{} { return p.done }

// Exited reports whether Exit has been called.
func (p *FakeProcess) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// ExitErr returns the simulated wait error.
func (p *FakeProcess) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exited {
		return nil
	}
	return p.exitErr
}

// Signal treats any signal as a request to exit.
func (p *FakeProcess) Signal(sig os.Signal) error {
	p.Exit(nil)
	return nil
}

// Kill exits immediately.
func (p *FakeProcess) Kill() error {
	p.Exit(nil)
	return nil
}

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }
