// Package serverinfofile maintains a single JSON file describing the running
// service: pid, workspace root, and live session states. External tools read
// it to find and inspect the daemon; it is removed on shutdown.
package serverinfofile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/entity"
)

const _configKeyInfoFile = "serverInfoFilePath"

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// ServerInfoFile manages the contents of the server info file.
type ServerInfoFile interface {
	// UpdateField sets one top-level field and rewrites the file.
	UpdateField(key string, value string) error
	// UpdateSessions replaces the recorded session snapshots and rewrites
	// the file.
	UpdateSessions(infos []entity.SessionInfo) error
}

type module struct {
	infofile string
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	fields   map[string]string
	sessions []entity.SessionInfo
}

// Params define values to be used by ServerInfoFile.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
}

// New creates a new ServerInfoFile which manages contents of a single server info file.
func New(p Params) (ServerInfoFile, error) {
	m := module{
		logger: p.Logger,
		fields: make(map[string]string),
	}

	if err := m.processConfig(p.Config); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: m.OnStop,
	})

	return &m, nil
}

func (m *module) OnStop(ctx context.Context) error {
	if m.infofile != "" {
		if err := os.Remove(m.infofile); err != nil {
			return err
		}
	}

	return nil
}

func (m *module) UpdateField(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fields[key] = value
	if err := m.writeLocked(); err != nil {
		return err
	}
	m.logger.Infow("server info saved", "file", m.infofile, key, value)
	return nil
}

func (m *module) UpdateSessions(infos []entity.SessionInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = infos
	return m.writeLocked()
}

// writeLocked rewrites the whole file. Callers hold m.mu.
func (m *module) writeLocked() error {
	contents := make(map[string]interface{}, len(m.fields)+1)
	for k, v := range m.fields {
		contents[k] = v
	}
	contents["sessions"] = m.sessions

	jsonOutput, err := json.Marshal(contents)
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}
	if err := os.WriteFile(m.infofile, jsonOutput, 0644); err != nil {
		return fmt.Errorf("creating info file: %w", err)
	}
	return nil
}

func (m *module) processConfig(cfg config.Provider) error {
	val := cfg.Get(_configKeyInfoFile)
	if err := val.Populate(&m.infofile); err != nil {
		// incorrectly formatted config
		return fmt.Errorf("getting config field %q: %w", _configKeyInfoFile, err)
	}

	if m.infofile == "" {
		// yaml is missing either the key or value
		return fmt.Errorf("missing field %q in config", _configKeyInfoFile)
	}

	return nil
}
