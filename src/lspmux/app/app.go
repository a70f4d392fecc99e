// Package app assembles the lspmux daemon from its fx modules.
package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"

	"github.com/lspmux/lspmux/src/lspmux/controller"
	"github.com/lspmux/lspmux/src/lspmux/controller/registry"
	"github.com/lspmux/lspmux/src/lspmux/gateway/langserver"
	"github.com/lspmux/lspmux/src/lspmux/internal/clock"
	"github.com/lspmux/lspmux/src/lspmux/internal/core"
	"github.com/lspmux/lspmux/src/lspmux/internal/fs"
	"github.com/lspmux/lspmux/src/lspmux/internal/serverinfofile"
	"github.com/lspmux/lspmux/src/lspmux/internal/supervisor"
	"github.com/lspmux/lspmux/src/lspmux/internal/watcher"
	sessionrepo "github.com/lspmux/lspmux/src/lspmux/repository/session"
)

// Module defines the lspmux daemon application module.
var Module = fx.Options(
	core.ConfigModule,
	core.LoggerModule,
	fs.Module,
	supervisor.Module,
	serverinfofile.Module,
	watcher.Module,
	controller.Module,
	langserver.Module,
	fx.Provide(clock.New),
	fx.Provide(sessionrepo.New),
	fx.Provide(func(reg registry.Controller) watcher.Broadcaster {
		return reg
	}),
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "lspmux",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        "local",
			RuntimeEnvironment: "local",
		}
	}),
	fx.Invoke(registerLifecycle),
)
