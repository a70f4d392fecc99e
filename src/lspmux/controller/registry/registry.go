// Package registry owns the mapping from language keys to live sessions. It
// is the only component that creates or destroys sessions, giving each
// language crash isolation from the rest.
package registry

import (
	"bufio"
	"context"
	iofs "io/fs"
	"sync"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	sessionctl "github.com/lspmux/lspmux/src/lspmux/controller/session"
	"github.com/lspmux/lspmux/src/lspmux/entity"
	"github.com/lspmux/lspmux/src/lspmux/internal/clock"
	"github.com/lspmux/lspmux/src/lspmux/internal/errors"
	"github.com/lspmux/lspmux/src/lspmux/internal/fs"
	"github.com/lspmux/lspmux/src/lspmux/internal/serverinfofile"
	"github.com/lspmux/lspmux/src/lspmux/internal/supervisor"
	"github.com/lspmux/lspmux/src/lspmux/internal/transport"
	"github.com/lspmux/lspmux/src/lspmux/mapper"
	sessionrepo "github.com/lspmux/lspmux/src/lspmux/repository/session"
)

// Module provides a module to inject using fx.
var Module = fx.Provide(New)

const (
	_configWorkspaceRootKey = "workspaceRoot"
	_configLanguagesKey     = "languages"
)

// Controller routes workspace requests to per-language sessions, starting
// servers lazily and isolating crashes to their own language.
type Controller interface {
	// Resolve returns the live session serving the file's language, starting
	// one if needed.
	Resolve(ctx context.Context, path string) (sessionctl.Session, error)
	// GetOrStart returns the live session for a language, spawning and
	// initializing a server when none exists. Concurrent calls for the same
	// language produce exactly one spawn.
	GetOrStart(ctx context.Context, language entity.Language) (sessionctl.Session, error)
	// DetectLanguages scans the workspace for project markers and source
	// files and reports the configured languages present.
	DetectLanguages(ctx context.Context) ([]entity.Language, error)
	// WarmUp eagerly starts a server for every detected language. A failure
	// for one language does not stop the others.
	WarmUp(ctx context.Context) error
	// Broadcast sends a notification to every ready session.
	Broadcast(ctx context.Context, method string, params interface{})
	// Sessions lists snapshots of the live sessions.
	Sessions(ctx context.Context) []entity.SessionInfo
	// WorkspaceRoot returns the workspace this registry serves.
	WorkspaceRoot() string
	// ShutdownAll stops every live session and clears the registry.
	ShutdownAll(ctx context.Context) error
}

// Params are inbound parameters to initialize a new registry.
type Params struct {
	fx.In

	Sessions   sessionrepo.Repository
	Supervisor supervisor.Supervisor
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
	Config     config.Provider
	Clock      clock.Clock
	FS         fs.MuxFS
	InfoFile   serverinfofile.ServerInfoFile `optional:"true"`
}

type controller struct {
	sessions   sessionrepo.Repository
	supervisor supervisor.Supervisor
	logger     *zap.SugaredLogger
	stats      tally.Scope
	clock      clock.Clock
	fs         fs.MuxFS
	infoFile   serverinfofile.ServerInfoFile

	workspaceRoot string
	launchConfigs map[entity.Language]entity.LaunchConfig

	mu       sync.Mutex
	creating map[entity.Language]*sync.Mutex
}

// New creates a new registry Controller.
func New(p Params) (Controller, error) {
	var workspaceRoot string
	if err := p.Config.Get(_configWorkspaceRootKey).Populate(&workspaceRoot); err != nil {
		return nil, err
	}

	launchConfigs := make(map[entity.Language]entity.LaunchConfig)
	if err := p.Config.Get(_configLanguagesKey).Populate(&launchConfigs); err != nil {
		return nil, err
	}

	return &controller{
		sessions:      p.Sessions,
		supervisor:    p.Supervisor,
		logger:        p.Logger,
		stats:         p.Stats,
		clock:         p.Clock,
		fs:            p.FS,
		infoFile:      p.InfoFile,
		workspaceRoot: workspaceRoot,
		launchConfigs: launchConfigs,
		creating:      make(map[entity.Language]*sync.Mutex),
	}, nil
}

func (c *controller) Resolve(ctx context.Context, path string) (sessionctl.Session, error) {
	language, err := mapper.PathToLanguage(path)
	if err != nil {
		return nil, err
	}
	return c.GetOrStart(ctx, language)
}

func (c *controller) GetOrStart(ctx context.Context, language entity.Language) (sessionctl.Session, error) {
	cfg, ok := c.launchConfigs[language]
	if !ok {
		return nil, &errors.NotConfiguredError{Language: string(language)}
	}

	// The per-language lock is held through spawn and initialize, so
	// concurrent callers for the same language wait for one server while
	// other languages proceed independently.
	lock := c.creationLock(language)
	lock.Lock()
	defer lock.Unlock()

	if sess, ok := c.sessions.Get(ctx, language); ok && !sess.State().Closed() {
		return sess, nil
	}

	sess, err := c.start(ctx, language, cfg)
	if err != nil {
		c.stats.Tagged(map[string]string{"language": string(language)}).Counter("session_start_failures").Inc(1)
		return nil, err
	}
	if err := c.sessions.Set(ctx, sess); err != nil {
		return nil, err
	}
	c.publishSessions(ctx)
	return sess, nil
}

func (c *controller) start(ctx context.Context, language entity.Language, cfg entity.LaunchConfig) (sessionctl.Session, error) {
	proc, err := c.supervisor.Spawn(ctx, c.workspaceRoot, cfg)
	if err != nil {
		return nil, err
	}
	go c.drainStderr(language, proc)

	sess := sessionctl.New(sessionctl.Params{
		Language:      language,
		WorkspaceRoot: c.workspaceRoot,
		Config:        cfg,
		Process:       proc,
		Channel:       transport.New(proc.Stdin(), proc.Stdout()),
		Supervisor:    c.supervisor,
		Logger:        c.logger,
		Stats:         c.stats.Tagged(map[string]string{"language": string(language)}),
		Clock:         c.clock,
		FS:            c.fs,
		OnFailure:     c.onSessionFailure,
	})

	if _, err := sess.Initialize(ctx); err != nil {
		// The failed server must not linger; discard it entirely so the next
		// request starts fresh.
		if shutdownErr := sess.Shutdown(ctx); shutdownErr != nil {
			c.logger.Warnw("discarding uninitialized session",
				"language", language,
				"error", shutdownErr,
			)
		}
		return nil, err
	}

	c.logger.Infow("language server session ready",
		"language", language,
		"uuid", sess.UUID(),
		"workspaceRoot", c.workspaceRoot,
	)
	return sess, nil
}

// onSessionFailure clears the crashed session's registry entry so the next
// request for its language respawns. There is no automatic retry.
func (c *controller) onSessionFailure(language entity.Language, id uuid.UUID) {
	if c.sessions.DeleteMatching(context.Background(), language, id) {
		c.stats.Tagged(map[string]string{"language": string(language)}).Counter("session_crashes").Inc(1)
		c.logger.Warnw("cleared crashed session, next request will respawn",
			"language", language,
			"uuid", id,
		)
		c.publishSessions(context.Background())
	}
}

func (c *controller) DetectLanguages(ctx context.Context) ([]entity.Language, error) {
	found := make(map[entity.Language]struct{})
	err := c.fs.WalkDir(c.workspaceRoot, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if mapper.IgnoredDir(d.Name()) {
				return iofs.SkipDir
			}
			return nil
		}
		if lang, ok := mapper.MarkerToLanguage(d.Name()); ok {
			found[lang] = struct{}{}
			return nil
		}
		if lang, err := mapper.PathToLanguage(d.Name()); err == nil {
			found[lang] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stable detection order; only configured languages are reported.
	languages := make([]entity.Language, 0, len(found))
	for _, lang := range entity.AllLanguages() {
		if _, ok := found[lang]; !ok {
			continue
		}
		if _, ok := c.launchConfigs[lang]; !ok {
			continue
		}
		languages = append(languages, lang)
	}
	return languages, nil
}

func (c *controller) WarmUp(ctx context.Context) error {
	languages, err := c.DetectLanguages(ctx)
	if err != nil {
		return err
	}

	var errs error
	for _, language := range languages {
		if _, err := c.GetOrStart(ctx, language); err != nil {
			c.logger.Warnw("warm-up failed for language", "language", language, "error", err)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *controller) Broadcast(ctx context.Context, method string, params interface{}) {
	for _, sess := range c.sessions.All(ctx) {
		if sess.State() != entity.StateReady {
			continue
		}
		if err := sess.Notify(ctx, method, params); err != nil {
			c.logger.Debugw("broadcast notify failed",
				"language", sess.Language(),
				"method", method,
				"error", err,
			)
		}
	}
}

func (c *controller) Sessions(ctx context.Context) []entity.SessionInfo {
	live := c.sessions.All(ctx)
	infos := make([]entity.SessionInfo, 0, len(live))
	for _, sess := range live {
		infos = append(infos, sess.Info())
	}
	return infos
}

func (c *controller) WorkspaceRoot() string {
	return c.workspaceRoot
}

func (c *controller) ShutdownAll(ctx context.Context) error {
	var errs error
	for _, sess := range c.sessions.All(ctx) {
		if err := sess.Shutdown(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
		c.sessions.Delete(ctx, sess.Language())
	}
	c.publishSessions(ctx)
	return errs
}

// publishSessions refreshes the info file's session snapshots whenever
// registry membership changes. Best effort; the file is observability only.
func (c *controller) publishSessions(ctx context.Context) {
	if c.infoFile == nil {
		return
	}
	if err := c.infoFile.UpdateSessions(c.Sessions(ctx)); err != nil {
		c.logger.Debugw("updating session info file", "error", err)
	}
}

func (c *controller) creationLock(language entity.Language) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.creating[language]
	if !ok {
		lock = &sync.Mutex{}
		c.creating[language] = lock
	}
	return lock
}

// drainStderr forwards server stderr lines to the service log until the
// process exits.
func (c *controller) drainStderr(language entity.Language, proc supervisor.Process) {
	scanner := bufio.NewScanner(proc.Stderr())
	for scanner.Scan() {
		c.logger.Debugw("server stderr", "language", language, "line", scanner.Text())
	}
}
