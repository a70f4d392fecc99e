package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/entity"
	"github.com/lspmux/lspmux/src/lspmux/factory"
	"github.com/lspmux/lspmux/src/lspmux/internal/clock"
	"github.com/lspmux/lspmux/src/lspmux/internal/errors"
	"github.com/lspmux/lspmux/src/lspmux/internal/fs"
	"github.com/lspmux/lspmux/src/lspmux/internal/supervisor"
	"github.com/lspmux/lspmux/src/lspmux/internal/supervisor/supervisormock"
	"github.com/lspmux/lspmux/src/lspmux/internal/transport"
	"github.com/lspmux/lspmux/src/lspmux/model"
)

const _testCallTimeout = 2 * time.Second

type testEnv struct {
	server   *factory.FakeServer
	sess     Session
	failures chan entity.Language
}

func newTestEnv(t *testing.T, opts ...factory.FakeServerOption) *testEnv {
	ctrl := gomock.NewController(t)

	server := factory.NewFakeServer(opts...)
	proc := server.Process()

	sup := supervisormock.NewMockSupervisor(ctrl)
	sup.EXPECT().Terminate(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p supervisor.Process, _ time.Duration) error {
			return p.Kill()
		}).AnyTimes()

	failures := make(chan entity.Language, 1)
	sess := New(Params{
		Language:      entity.LanguagePython,
		WorkspaceRoot: t.TempDir(),
		Config:        entity.LaunchConfig{Command: "fake-server", InitializeTimeoutSeconds: 2},
		Process:       proc,
		Channel:       transport.New(proc.Stdin(), proc.Stdout()),
		Supervisor:    sup,
		Logger:        zap.NewNop().Sugar(),
		Stats:         tally.NoopScope,
		Clock:         clock.New(),
		FS:            fs.New(),
		OnFailure: func(lang entity.Language, _ uuid.UUID) {
			failures <- lang
		},
	})
	t.Cleanup(func() {
		sess.Shutdown(context.Background())
	})

	return &testEnv{server: server, sess: sess, failures: failures}
}

func (e *testEnv) initialize(t *testing.T) {
	result, err := e.sess.Initialize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestInitialize(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	assert.Equal(t, entity.StateReady, env.sess.State())
	assert.Contains(t, env.server.Notifications(), protocol.MethodInitialized)
}

func TestInitializeTwice(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	_, err := env.sess.Initialize(context.Background())
	assert.ErrorIs(t, err, errors.ErrNotReady)
}

func TestInitializeServerError(t *testing.T) {
	env := newTestEnv(t, factory.WithHandler(protocol.MethodInitialize,
		func(json.RawMessage) (interface{}, error) {
			return nil, jsonrpc2.NewError(jsonrpc2.InternalError, "no workspace")
		}))

	_, err := env.sess.Initialize(context.Background())
	var initErr *errors.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "python", initErr.Language)
	assert.Equal(t, "no workspace", initErr.Message)
}

func TestInitializeTimeout(t *testing.T) {
	env := newTestEnv(t, factory.WithSilentMethod(protocol.MethodInitialize))

	_, err := env.sess.Initialize(context.Background())
	assert.ErrorIs(t, err, errors.ErrInitializeTimeout)
	assert.True(t, errors.IsTimeout(err))
}

func TestCallBeforeInitialize(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sess.Call(context.Background(), protocol.MethodTextDocumentDefinition, nil, _testCallTimeout)
	assert.ErrorIs(t, err, errors.ErrNotReady)
}

func TestCallRoundTrip(t *testing.T) {
	env := newTestEnv(t, factory.WithHandler(protocol.MethodTextDocumentDefinition,
		func(json.RawMessage) (interface{}, error) {
			return []protocol.Location{factory.Location("file:///w/foo.py")}, nil
		}))
	env.initialize(t)

	raw, err := env.sess.Call(context.Background(), protocol.MethodTextDocumentDefinition, nil, _testCallTimeout)
	require.NoError(t, err)

	var locations []protocol.Location
	require.NoError(t, json.Unmarshal(raw, &locations))
	require.Len(t, locations, 1)
	assert.Equal(t, "file:///w/foo.py", string(locations[0].URI))
}

func TestCallServerError(t *testing.T) {
	env := newTestEnv(t, factory.WithHandler(protocol.MethodTextDocumentHover,
		func(json.RawMessage) (interface{}, error) {
			return nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, "bad position")
		}))
	env.initialize(t)

	_, err := env.sess.Call(context.Background(), protocol.MethodTextDocumentHover, nil, _testCallTimeout)
	var respErr *errors.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, protocol.MethodTextDocumentHover, respErr.Method)
	assert.Equal(t, "bad position", respErr.Message)

	// A server-reported error leaves the session usable.
	assert.Equal(t, entity.StateReady, env.sess.State())
}

func TestCallTimeoutKeepsSessionAlive(t *testing.T) {
	env := newTestEnv(t,
		factory.WithSilentMethod(protocol.MethodTextDocumentReferences),
		factory.WithHandler("test/echo", echoHandler))
	env.initialize(t)

	_, err := env.sess.Call(context.Background(), protocol.MethodTextDocumentReferences, nil, 50*time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrRequestTimeout)

	assert.Equal(t, entity.StateReady, env.sess.State())
	_, err = env.sess.Call(context.Background(), "test/echo", map[string]int{"n": 1}, _testCallTimeout)
	assert.NoError(t, err)
}

func TestLateResponseAfterTimeout(t *testing.T) {
	env := newTestEnv(t, factory.WithHandler("test/slow",
		func(json.RawMessage) (interface{}, error) {
			time.Sleep(200 * time.Millisecond)
			return "done", nil
		}))
	env.initialize(t)

	_, err := env.sess.Call(context.Background(), "test/slow", nil, 50*time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrRequestTimeout)

	// The late reply lands on the unknown-id path without disturbing the
	// session.
	raw, err := env.sess.Call(context.Background(), "test/slow", nil, _testCallTimeout)
	require.NoError(t, err)
	assert.Equal(t, `"done"`, string(raw))
}

func TestNullIDErrorResponseKeepsSessionAlive(t *testing.T) {
	env := newTestEnv(t, factory.WithHandler("test/echo", echoHandler))
	env.initialize(t)

	// A server that cannot read a request id answers with id null. That is an
	// anomaly to log, never a session fault.
	require.NoError(t, env.server.Inject(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`))

	raw, err := env.sess.Call(context.Background(), "test/echo", map[string]int{"n": 1}, _testCallTimeout)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(raw))
	assert.Equal(t, entity.StateReady, env.sess.State())
}

func TestStringIDServerRequestDispatched(t *testing.T) {
	env := newTestEnv(t, factory.WithHandler("test/echo", echoHandler))
	env.initialize(t)

	received := make(chan *model.Message, 1)
	env.sess.Subscribe(func(msg *model.Message) {
		received <- msg
	})

	require.NoError(t, env.server.Inject(`{"jsonrpc":"2.0","id":"reg-1","method":"client/registerCapability","params":{}}`))

	select {
	case msg := <-received:
		assert.Equal(t, model.KindServerRequest, msg.Kind())
		assert.Equal(t, "client/registerCapability", msg.Method)
		require.NotNil(t, msg.ID)
		_, numeric := msg.ID.Number()
		assert.False(t, numeric)
	case <-time.After(_testCallTimeout):
		t.Fatal("server request was not dispatched")
	}

	raw, err := env.sess.Call(context.Background(), "test/echo", map[string]int{"n": 2}, _testCallTimeout)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(raw))
	assert.Equal(t, entity.StateReady, env.sess.State())
}

func TestCallContextCanceled(t *testing.T) {
	env := newTestEnv(t, factory.WithSilentMethod("test/hang"))
	env.initialize(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := env.sess.Call(ctx, "test/hang", nil, _testCallTimeout)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, entity.StateReady, env.sess.State())
}

func TestConcurrentCallsCorrelate(t *testing.T) {
	env := newTestEnv(t, factory.WithHandler("test/echo", echoHandler))
	env.initialize(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			raw, err := env.sess.Call(context.Background(), "test/echo", map[string]int{"n": n}, _testCallTimeout)
			if !assert.NoError(t, err) {
				return
			}
			var got map[string]int
			if !assert.NoError(t, json.Unmarshal(raw, &got)) {
				return
			}
			assert.Equal(t, n, got["n"])
		}(i)
	}
	wg.Wait()
}

func TestCrashFailsPendingCallsAndNotifiesObserver(t *testing.T) {
	env := newTestEnv(t, factory.WithSilentMethod("test/hang"))
	env.initialize(t)

	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := env.sess.Call(context.Background(), "test/hang", nil, _testCallTimeout)
			results <- err
		}()
	}
	// Let the calls reach the server before it dies.
	time.Sleep(50 * time.Millisecond)
	env.server.Crash()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, <-results, errors.ErrSessionClosed)
	}
	assert.Equal(t, entity.StateErrored, env.sess.State())

	select {
	case lang := <-env.failures:
		assert.Equal(t, entity.LanguagePython, lang)
	case <-time.After(time.Second):
		t.Fatal("failure observer was not invoked")
	}

	select {
	case <-env.sess.Closed():
	default:
		t.Fatal("Closed channel not closed after crash")
	}
}

func TestShutdown(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	require.NoError(t, env.sess.Shutdown(context.Background()))
	assert.Equal(t, entity.StateTerminated, env.sess.State())

	notifications := env.server.Notifications()
	assert.Contains(t, notifications, protocol.MethodExit)

	_, err := env.sess.Call(context.Background(), protocol.MethodTextDocumentHover, nil, _testCallTimeout)
	assert.ErrorIs(t, err, errors.ErrSessionClosed)

	// Deliberate shutdown never reports a failure.
	select {
	case <-env.failures:
		t.Fatal("failure observer invoked for deliberate shutdown")
	default:
	}
}

func TestShutdownIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	require.NoError(t, env.sess.Shutdown(context.Background()))
	assert.NoError(t, env.sess.Shutdown(context.Background()))
}

func TestOpenDocumentOnce(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(path, []byte("print('hi')\n"), 0644))

	require.NoError(t, env.sess.OpenDocumentOnce(context.Background(), path))
	require.NoError(t, env.sess.OpenDocumentOnce(context.Background(), path))

	opens := 0
	for _, method := range env.server.Notifications() {
		if method == protocol.MethodTextDocumentDidOpen {
			opens++
		}
	}
	assert.Equal(t, 1, opens)
}

func TestOpenDocumentOnceMissingFile(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	err := env.sess.OpenDocumentOnce(context.Background(), filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}

func TestServerNotificationDispatch(t *testing.T) {
	env := newTestEnv(t)

	received := make(chan *model.Message, 1)
	env.sess.Subscribe(func(msg *model.Message) {
		received <- msg
	})
	env.initialize(t)

	err := env.server.Notify(context.Background(), protocol.MethodWindowLogMessage, protocol.LogMessageParams{
		Type:    protocol.MessageTypeInfo,
		Message: "indexing done",
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, model.KindNotification, msg.Kind())
		assert.Equal(t, protocol.MethodWindowLogMessage, msg.Method)
	case <-time.After(time.Second):
		t.Fatal("notification not dispatched to subscriber")
	}
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	info := env.sess.Info()
	assert.Equal(t, env.sess.UUID(), info.UUID)
	assert.Equal(t, entity.LanguagePython, info.Language)
	assert.Equal(t, entity.StateReady, info.State)
	assert.False(t, info.StartedAt.IsZero())
}

func echoHandler(params json.RawMessage) (interface{}, error) {
	return json.RawMessage(params), nil
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
