package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedLanguage(t *testing.T) {
	err := &UnsupportedLanguageError{Path: "notes.txt"}
	assert.Equal(t, `no language server for "notes.txt"`, err.Error())
	assert.True(t, IsUnsupportedLanguage(fmt.Errorf("resolving: %w", err)))
	assert.False(t, IsUnsupportedLanguage(New("err")))
}

func TestInitializationError(t *testing.T) {
	err := &InitializationError{Language: "java", Code: -32603, Message: "jdtls exploded"}
	assert.Equal(t, "initializing java server: -32603 jdtls exploded", err.Error())
}

func TestSpawnError(t *testing.T) {
	inner := New("no such file")
	err := &SpawnError{Command: "rust-analyzer", Err: inner}
	assert.ErrorIs(t, err, inner)

	cmd, ok := SpawnFailedCommand(fmt.Errorf("starting session: %w", err))
	assert.True(t, ok)
	assert.Equal(t, "rust-analyzer", cmd)

	_, ok = SpawnFailedCommand(New("err"))
	assert.False(t, ok)
}
