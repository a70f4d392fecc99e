// Package entity contains the domain types for the lspmux service.
package entity

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// Language identifies one language server key. Exactly one server process
// runs per language at any time.
type Language string

// Languages with a supported server launch configuration.
const (
	LanguagePython     Language = "python"
	LanguageTypeScript Language = "typescript"
	LanguageRust       Language = "rust"
	LanguageCPP        Language = "cpp"
	LanguageJava       Language = "java"
	LanguageGo         Language = "go"
	LanguagePHP        Language = "php"
)

// AllLanguages lists every supported language key in detection order.
func AllLanguages() []Language {
	return []Language{
		LanguagePython,
		LanguageTypeScript,
		LanguageRust,
		LanguageCPP,
		LanguageJava,
		LanguageGo,
		LanguagePHP,
	}
}

// SessionState tracks a session through its lifecycle. Transitions move
// forward only; crash recovery tears the session down entirely and the next
// request starts a fresh one.
type SessionState int32

const (
	// StateUninitialized is a session whose process has spawned but whose
	// initialize handshake has not started.
	StateUninitialized SessionState = iota
	// StateInitializing is a session awaiting the initialize response.
	StateInitializing
	// StateReady is a session accepting calls.
	StateReady
	// StateShuttingDown is a session draining during the shutdown/exit sequence.
	StateShuttingDown
	// StateTerminated is a session whose process has been stopped deliberately.
	StateTerminated
	// StateErrored is the absorbing state entered on unrecoverable transport
	// or process failure.
	StateErrored
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shuttingDown"
	case StateTerminated:
		return "terminated"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Closed reports whether the session has reached a state in which no further
// calls will ever succeed.
func (s SessionState) Closed() bool {
	return s == StateTerminated || s == StateErrored
}

// LaunchConfig describes how to start one language server process.
// Sourced from YAML configuration under the "languages" key.
type LaunchConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	// InitializeTimeoutSeconds bounds the initialize handshake. Large
	// workspaces on heavyweight servers (jdtls) need a bigger window, so it
	// is tunable per language. Zero means the service default.
	InitializeTimeoutSeconds int `yaml:"initializeTimeoutSeconds"`
}

// InitializeTimeout returns the configured handshake bound, or def when unset.
func (c LaunchConfig) InitializeTimeout(def time.Duration) time.Duration {
	if c.InitializeTimeoutSeconds <= 0 {
		return def
	}
	return time.Duration(c.InitializeTimeoutSeconds) * time.Second
}

// SessionInfo is a point-in-time snapshot of one live session, exposed for
// observability and the service's info file.
type SessionInfo struct {
	UUID          uuid.UUID    `json:"uuid"`
	Language      Language     `json:"language"`
	WorkspaceRoot string       `json:"workspaceRoot"`
	State         SessionState `json:"state"`
	StartedAt     time.Time    `json:"startedAt"`
}
