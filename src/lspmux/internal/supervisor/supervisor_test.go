package supervisor

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/entity"
	"github.com/lspmux/lspmux/src/lspmux/internal/errors"
)

func newTestSupervisor() Supervisor {
	return &supervisor{logger: zap.NewNop().Sugar()}
}

func TestSpawnMissingBinary(t *testing.T) {
	s := newTestSupervisor()
	_, err := s.Spawn(context.Background(), t.TempDir(), entity.LaunchConfig{Command: "definitely-not-a-language-server"})
	require.Error(t, err)

	cmd, ok := errors.SpawnFailedCommand(err)
	assert.True(t, ok)
	assert.Equal(t, "definitely-not-a-language-server", cmd)
}

func TestSpawnInvalidWorkingDirectory(t *testing.T) {
	s := newTestSupervisor()
	_, err := s.Spawn(context.Background(), "/nonexistent/workspace/root", entity.LaunchConfig{Command: "cat"})
	require.Error(t, err)

	var se *errors.SpawnError
	assert.ErrorAs(t, err, &se)
}

func TestTerminateGraceful(t *testing.T) {
	s := newTestSupervisor()
	proc, err := s.Spawn(context.Background(), t.TempDir(), entity.LaunchConfig{Command: "cat"})
	require.NoError(t, err)

	assert.False(t, proc.Exited())
	assert.NoError(t, proc.ExitErr())
	assert.Greater(t, proc.Pid(), 0)

	require.NoError(t, s.Terminate(context.Background(), proc, 5*time.Second))
	assert.True(t, proc.Exited())

	// Terminating an exited process is a no-op.
	assert.NoError(t, s.Terminate(context.Background(), proc, time.Second))
}

func TestTerminateForceKill(t *testing.T) {
	s := newTestSupervisor()
	proc, err := s.Spawn(context.Background(), t.TempDir(), entity.LaunchConfig{
		Command: "sh",
		Args:    []string{"-c", `trap "" TERM; while :; do sleep 0.1; done`},
	})
	require.NoError(t, err)

	require.NoError(t, s.Terminate(context.Background(), proc, 200*time.Millisecond))
	assert.True(t, proc.Exited())
	assert.Error(t, proc.ExitErr())
}

func TestExitStatusObserved(t *testing.T) {
	s := newTestSupervisor()
	proc, err := s.Spawn(context.Background(), t.TempDir(), entity.LaunchConfig{
		Command: "sh",
		Args:    []string{"-c", "exit 3"},
	})
	require.NoError(t, err)

	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	assert.True(t, proc.Exited())
	var exitErr *exec.ExitError
	require.ErrorAs(t, proc.ExitErr(), &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestEnvPassedToProcess(t *testing.T) {
	s := newTestSupervisor()
	dir := t.TempDir()
	proc, err := s.Spawn(context.Background(), dir, entity.LaunchConfig{
		Command: "sh",
		Args:    []string{"-c", `test "$LSPMUX_TEST_VAR" = "1"`},
		Env:     []string{"LSPMUX_TEST_VAR=1"},
	})
	require.NoError(t, err)

	<-proc.Done()
	assert.NoError(t, proc.ExitErr())
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
