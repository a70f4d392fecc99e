package app

import (
	"context"
	"os"
	"strconv"

	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/controller/proxy"
	"github.com/lspmux/lspmux/src/lspmux/controller/registry"
	"github.com/lspmux/lspmux/src/lspmux/internal/serverinfofile"
	"github.com/lspmux/lspmux/src/lspmux/internal/watcher"
)

const _configWarmUpKey = "warmUpOnStart"

// LifecycleParams is the set of dependencies wired into daemon start and stop.
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	Config    config.Provider

	Proxy    proxy.Controller
	Registry registry.Controller
	Watcher  watcher.Watcher
	InfoFile serverinfofile.ServerInfoFile
}

// registerLifecycle starts the workspace watch and optional warm-up when the
// daemon starts, and tears every session down when it stops.
func registerLifecycle(p LifecycleParams) {
	var warmUp bool
	if err := p.Config.Get(_configWarmUpKey).Populate(&warmUp); err != nil {
		warmUp = false
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.InfoFile.UpdateField("pid", strconv.Itoa(os.Getpid())); err != nil {
				return err
			}
			if err := p.InfoFile.UpdateField("workspaceRoot", p.Registry.WorkspaceRoot()); err != nil {
				return err
			}

			if err := p.Watcher.Start(context.Background(), p.Registry.WorkspaceRoot()); err != nil {
				return err
			}

			if warmUp {
				// Warm-up failures leave lazy start as the fallback. Session
				// snapshots reach the info file from the registry as each
				// server starts.
				go func() {
					if err := p.Registry.WarmUp(context.Background()); err != nil {
						p.Logger.Warnw("warm-up finished with errors", "error", err)
					}
				}()
			}

			p.Logger.Infow("lspmux daemon started",
				"workspaceRoot", p.Registry.WorkspaceRoot(),
				"warmUp", warmUp,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := p.Watcher.Stop(); err != nil {
				p.Logger.Warnw("stopping watcher", "error", err)
			}
			return p.Proxy.ShutdownAll(ctx)
		},
	})
}
