// Package session implements the proxy-side representation of one running
// language server process: request/response correlation, notification
// dispatch, and the session lifecycle state machine.
package session

import (
	"context"
	"encoding/json"
	stderr "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/entity"
	"github.com/lspmux/lspmux/src/lspmux/internal/clock"
	"github.com/lspmux/lspmux/src/lspmux/internal/errors"
	"github.com/lspmux/lspmux/src/lspmux/internal/fs"
	"github.com/lspmux/lspmux/src/lspmux/internal/supervisor"
	"github.com/lspmux/lspmux/src/lspmux/internal/transport"
	"github.com/lspmux/lspmux/src/lspmux/mapper"
	"github.com/lspmux/lspmux/src/lspmux/model"
)

const (
	_defaultInitializeTimeout = 30 * time.Second
	_shutdownRequestTimeout   = 5 * time.Second
	_terminateGracePeriod     = 5 * time.Second
)

// Subscriber receives server-initiated messages (notifications and server
// requests) that are not part of a request/response pair.
type Subscriber func(msg *model.Message)

// FailureObserver is invoked once when a session fails unrecoverably, so the
// registry can clear its entry. It is never invoked for deliberate shutdown.
type FailureObserver func(language entity.Language, id uuid.UUID)

// Session is one live language server connection.
type Session interface {
	// UUID identifies this session instance. A respawned server gets a new UUID.
	UUID() uuid.UUID
	// Language returns the language key this session serves.
	Language() entity.Language
	// State returns the current lifecycle state.
	State() entity.SessionState
	// Info returns an observability snapshot.
	Info() entity.SessionInfo

	// Initialize performs the LSP initialize handshake. Valid only from the
	// uninitialized state.
	Initialize(ctx context.Context) (*protocol.InitializeResult, error)
	// Call issues a request and suspends the caller until the correlated
	// response, the timeout, or session closure.
	Call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error)
	// Notify sends a notification, which expects no response.
	Notify(ctx context.Context, method string, params interface{}) error
	// OpenDocumentOnce lazily sends textDocument/didOpen for a file the first
	// time it is needed by a positional request on this session.
	OpenDocumentOnce(ctx context.Context, path string) error
	// Subscribe registers the handler for server-initiated messages.
	// Without a subscriber such messages are dropped after logging.
	Subscribe(sub Subscriber)
	// Shutdown runs the LSP shutdown/exit sequence and terminates the
	// process. The session always ends terminated, even if the graceful
	// path fails.
	Shutdown(ctx context.Context) error
	// Closed is closed once the session can no longer serve calls.
	Closed() <-chan struct{}
}

// Params are inbound parameters to construct a new session.
type Params struct {
	Language      entity.Language
	WorkspaceRoot string
	Config        entity.LaunchConfig

	Process    supervisor.Process
	Channel    transport.Channel
	Supervisor supervisor.Supervisor

	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Clock     clock.Clock
	FS        fs.MuxFS
	OnFailure FailureObserver
}

type session struct {
	uuid          uuid.UUID
	language      entity.Language
	workspaceRoot string
	config        entity.LaunchConfig

	proc supervisor.Process
	ch   transport.Channel
	sup  supervisor.Supervisor

	logger *zap.SugaredLogger
	stats  tally.Scope
	clock  clock.Clock
	fs     fs.MuxFS

	onFailure FailureObserver
	startedAt time.Time

	mu         sync.Mutex
	state      entity.SessionState
	nextID     int64
	pending    map[int64]chan *model.Message
	subscriber Subscriber
	openDocs   map[string]struct{}

	closed    chan struct{}
	closeOnce sync.Once

	loopCtx    context.Context
	loopCancel context.CancelFunc
}

// New constructs a session around a freshly spawned process and starts its
// receive loop. The caller must Initialize before issuing calls.
func New(p Params) Session {
	loopCtx, loopCancel := context.WithCancel(context.Background())
	s := &session{
		uuid:          uuid.Must(uuid.NewV4()),
		language:      p.Language,
		workspaceRoot: p.WorkspaceRoot,
		config:        p.Config,
		proc:          p.Process,
		ch:            p.Channel,
		sup:           p.Supervisor,
		logger:        p.Logger,
		stats:         p.Stats,
		clock:         p.Clock,
		fs:            p.FS,
		onFailure:     p.OnFailure,
		startedAt:     p.Clock.Now(),
		state:         entity.StateUninitialized,
		pending:       make(map[int64]chan *model.Message),
		openDocs:      make(map[string]struct{}),
		closed:        make(chan struct{}),
		loopCtx:       loopCtx,
		loopCancel:    loopCancel,
	}

	go s.receiveLoop()
	return s
}

func (s *session) UUID() uuid.UUID {
	return s.uuid
}

func (s *session) Language() entity.Language {
	return s.language
}

func (s *session) State() entity.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) Info() entity.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entity.SessionInfo{
		UUID:          s.uuid,
		Language:      s.language,
		WorkspaceRoot: s.workspaceRoot,
		State:         s.state,
		StartedAt:     s.startedAt,
	}
}

func (s *session) Closed() <-chan struct{} {
	return s.closed
}

func (s *session) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	if err := s.transition(entity.StateUninitialized, entity.StateInitializing); err != nil {
		return nil, err
	}

	timeout := s.config.InitializeTimeout(_defaultInitializeTimeout)
	params := mapper.WorkspaceToInitializeParams(s.workspaceRoot)

	raw, err := s.call(ctx, protocol.MethodInitialize, params, timeout)
	if err != nil {
		var respErr *errors.ResponseError
		switch {
		case stderr.Is(err, errors.ErrRequestTimeout):
			err = fmt.Errorf("%s server after %v: %w", s.language, timeout, errors.ErrInitializeTimeout)
		case stderr.As(err, &respErr):
			err = &errors.InitializationError{
				Language: string(s.language),
				Code:     respErr.Code,
				Message:  respErr.Message,
			}
		}
		return nil, err
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding initialize result: %w", err)
	}

	if err := s.Notify(ctx, protocol.MethodInitialized, protocol.InitializedParams{}); err != nil {
		return nil, fmt.Errorf("sending initialized: %w", err)
	}

	if err := s.transition(entity.StateInitializing, entity.StateReady); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *session) Call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if state := s.State(); state != entity.StateReady {
		if state.Closed() {
			return nil, fmt.Errorf("%s: %w", method, errors.ErrSessionClosed)
		}
		return nil, fmt.Errorf("%s in state %s: %w", method, state, errors.ErrNotReady)
	}
	return s.call(ctx, method, params, timeout)
}

// call issues a correlated request without checking the ready state, so the
// initialize handshake can use the same path.
func (s *session) call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	sw := s.stats.Tagged(map[string]string{"method": method}).Timer("request_latency").Start()
	defer sw.Stop()

	s.mu.Lock()
	if s.state.Closed() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", method, errors.ErrSessionClosed)
	}
	s.nextID++
	id := s.nextID
	slot := make(chan *model.Message, 1)
	s.pending[id] = slot
	s.mu.Unlock()

	msg, err := model.NewRequest(id, method, params)
	if err != nil {
		s.removePending(id)
		return nil, err
	}

	if err := s.ch.Send(ctx, msg); err != nil {
		s.removePending(id)
		s.fail(fmt.Errorf("sending %s: %w", method, err))
		return nil, fmt.Errorf("%s: %w", method, errors.ErrSessionClosed)
	}

	select {
	case resp := <-slot:
		return s.unpackResponse(method, resp)

	case <-s.clock.After(timeout):
		// The id is forgotten here; a late response lands on the unknown-id
		// path and is discarded. One final non-blocking check closes the race
		// between the timer and an in-flight delivery.
		s.removePending(id)
		select {
		case resp := <-slot:
			return s.unpackResponse(method, resp)
		default:
		}
		s.stats.Counter("request_timeouts").Inc(1)
		return nil, fmt.Errorf("%s after %v: %w", method, timeout, errors.ErrRequestTimeout)

	case <-ctx.Done():
		s.removePending(id)
		return nil, ctx.Err()

	case <-s.closed:
		return nil, fmt.Errorf("%s: %w", method, errors.ErrSessionClosed)
	}
}

func (s *session) unpackResponse(method string, resp *model.Message) (json.RawMessage, error) {
	if resp.Error != nil {
		return nil, &errors.ResponseError{
			Method:  method,
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
		}
	}
	return resp.Result, nil
}

func (s *session) Notify(ctx context.Context, method string, params interface{}) error {
	if s.State().Closed() {
		return fmt.Errorf("%s: %w", method, errors.ErrSessionClosed)
	}

	msg, err := model.NewNotification(method, params)
	if err != nil {
		return err
	}
	if err := s.ch.Send(ctx, msg); err != nil {
		s.fail(fmt.Errorf("sending %s: %w", method, err))
		return fmt.Errorf("%s: %w", method, errors.ErrSessionClosed)
	}
	return nil
}

func (s *session) OpenDocumentOnce(ctx context.Context, path string) error {
	s.mu.Lock()
	_, alreadyOpen := s.openDocs[path]
	s.mu.Unlock()
	if alreadyOpen {
		return nil
	}

	text, err := s.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s for didOpen: %w", path, err)
	}

	params := mapper.FileToDidOpenParams(path, mapper.LanguageToID(s.language), string(text))
	if err := s.Notify(ctx, protocol.MethodTextDocumentDidOpen, params); err != nil {
		return err
	}

	s.mu.Lock()
	s.openDocs[path] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *session) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriber = sub
}

func (s *session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Closed() {
		s.mu.Unlock()
		return nil
	}
	prev := s.state
	s.setStateLocked(entity.StateShuttingDown)
	s.mu.Unlock()

	// Best effort graceful sequence; a hung or crashed server must not block
	// teardown.
	if prev == entity.StateReady {
		if _, err := s.call(ctx, protocol.MethodShutdown, nil, _shutdownRequestTimeout); err != nil {
			s.logger.Debugw("shutdown request failed", "language", s.language, "error", err)
		}
		if msg, err := model.NewNotification(protocol.MethodExit, nil); err == nil {
			if err := s.ch.Send(ctx, msg); err != nil {
				s.logger.Debugw("exit notification failed", "language", s.language, "error", err)
			}
		}
	}

	err := s.sup.Terminate(ctx, s.proc, _terminateGracePeriod)

	s.mu.Lock()
	s.setStateLocked(entity.StateTerminated)
	pending := s.takePendingLocked()
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.closed) })
	s.loopCancel()
	discardPending(pending)
	return err
}

// receiveLoop drains the transport for the life of the session, routing
// responses to pending slots and forwarding server-initiated messages.
func (s *session) receiveLoop() {
	for {
		if s.loopCtx.Err() != nil {
			return
		}

		msg, err := s.ch.Receive(s.loopCtx)
		if err != nil {
			s.handleReceiveFailure(err)
			return
		}

		switch msg.Kind() {
		case model.KindResponse:
			s.dispatchResponse(msg)
		case model.KindNotification, model.KindServerRequest:
			s.dispatchServerMessage(msg)
		}
	}
}

func (s *session) dispatchResponse(msg *model.Message) {
	// Outbound requests always carry numeric ids. A null id (the server could
	// not read the request it is answering) or a string id can never match a
	// pending slot; both are protocol anomalies, not session faults.
	if msg.ID == nil {
		s.stats.Counter("protocol_anomalies").Inc(1)
		s.logger.Warnw("response with null request id",
			"language", s.language,
			"error", msg.Error,
		)
		return
	}
	id, numeric := msg.ID.Number()
	if !numeric {
		s.stats.Counter("protocol_anomalies").Inc(1)
		s.logger.Warnw("response with non-numeric request id",
			"language", s.language,
			"id", msg.ID.String(),
		)
		return
	}

	s.mu.Lock()
	slot, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		// Either a late response for a timed-out call, or a server bug.
		// A protocol anomaly, not a session fault.
		s.stats.Counter("protocol_anomalies").Inc(1)
		s.logger.Warnw("response for unknown request id",
			"language", s.language,
			"id", id,
		)
		return
	}
	slot <- msg
}

func (s *session) dispatchServerMessage(msg *model.Message) {
	s.mu.Lock()
	sub := s.subscriber
	s.mu.Unlock()

	if sub == nil {
		s.logger.Debugw("dropping unsubscribed server message",
			"language", s.language,
			"kind", msg.Kind().String(),
			"method", msg.Method,
		)
		return
	}
	sub(msg)
}

// handleReceiveFailure distinguishes expected stream closure during shutdown
// from a crash or transport corruption.
func (s *session) handleReceiveFailure(err error) {
	s.mu.Lock()
	alreadyClosing := s.state == entity.StateShuttingDown || s.state.Closed()
	s.mu.Unlock()

	if alreadyClosing {
		// Expected EOF from our own shutdown/exit sequence.
		return
	}

	if err == io.EOF && s.proc.Exited() {
		err = fmt.Errorf("server process exited: %v", s.proc.ExitErr())
	}
	s.fail(err)
}

// fail moves the session to the errored absorbing state, fails every pending
// call with ErrSessionClosed, and informs the failure observer exactly once.
func (s *session) fail(cause error) {
	s.mu.Lock()
	if s.state.Closed() {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(entity.StateErrored)
	pending := s.takePendingLocked()
	s.mu.Unlock()

	s.logger.Warnw("session failed",
		"language", s.language,
		"uuid", s.uuid,
		"pendingRequests", len(pending),
		"error", cause,
	)
	s.stats.Counter("session_failures").Inc(1)

	s.closeOnce.Do(func() { close(s.closed) })
	s.loopCancel()
	discardPending(pending)

	if s.onFailure != nil {
		s.onFailure(s.language, s.uuid)
	}
}

func (s *session) transition(from, to entity.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		if s.state.Closed() {
			return fmt.Errorf("session is %s: %w", s.state, errors.ErrSessionClosed)
		}
		return fmt.Errorf("session is %s, wanted %s: %w", s.state, from, errors.ErrNotReady)
	}
	s.setStateLocked(to)
	return nil
}

// setStateLocked records a state transition. Callers hold s.mu.
func (s *session) setStateLocked(to entity.SessionState) {
	from := s.state
	s.state = to
	s.logger.Infow("session state transition",
		"language", s.language,
		"uuid", s.uuid,
		"from", from.String(),
		"to", to.String(),
	)
	s.stats.Tagged(map[string]string{"state": to.String()}).Counter("session_transitions").Inc(1)
}

func (s *session) removePending(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

func (s *session) takePendingLocked() []chan *model.Message {
	pending := make([]chan *model.Message, 0, len(s.pending))
	for id, slot := range s.pending {
		pending = append(pending, slot)
		delete(s.pending, id)
	}
	return pending
}

// discardPending is a no-op on the slots themselves: waiters are released by
// the closed channel, and buffered slots are left for the GC.
func discardPending(pending []chan *model.Message) {
	for range pending {
	}
}
