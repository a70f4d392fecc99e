// Package proxy is the service facade. It combines language routing from the
// registry with typed requests from the langserver gateway, so callers work
// in terms of files and positions rather than sessions.
package proxy

import (
	"context"

	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/controller/registry"
	"github.com/lspmux/lspmux/src/lspmux/entity"
	"github.com/lspmux/lspmux/src/lspmux/gateway/langserver"
)

// Module provides a module to inject using fx.
var Module = fx.Provide(New)

// Controller exposes the multiplexed language server operations.
type Controller interface {
	// FindDefinition resolves definition locations for a position in a file.
	FindDefinition(ctx context.Context, path string, position protocol.Position) ([]protocol.Location, error)
	// FindReferences resolves reference locations for a position in a file.
	FindReferences(ctx context.Context, path string, position protocol.Position, includeDeclaration bool) ([]protocol.Location, error)
	// Hover returns hover content for a position in a file, nil when empty.
	Hover(ctx context.Context, path string, position protocol.Position) (*protocol.Hover, error)
	// DocumentSymbols lists symbols for one file.
	DocumentSymbols(ctx context.Context, path string) ([]protocol.DocumentSymbol, error)
	// WorkspaceSymbols queries every detected language's server and merges
	// the results. Languages whose server fails are skipped unless every
	// language fails.
	WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error)
	// ListLanguages reports the configured languages detected in the workspace.
	ListLanguages(ctx context.Context) ([]entity.Language, error)
	// Sessions lists snapshots of the live sessions.
	Sessions(ctx context.Context) []entity.SessionInfo
	// ShutdownAll stops every language server.
	ShutdownAll(ctx context.Context) error
}

// Params are inbound parameters to initialize the proxy.
type Params struct {
	fx.In

	Registry registry.Controller
	Gateway  langserver.Gateway
	Logger   *zap.SugaredLogger
	Stats    tally.Scope
}

type controller struct {
	registry registry.Controller
	gateway  langserver.Gateway
	logger   *zap.SugaredLogger
	stats    tally.Scope
}

// New creates a new proxy Controller.
func New(p Params) Controller {
	return &controller{
		registry: p.Registry,
		gateway:  p.Gateway,
		logger:   p.Logger,
		stats:    p.Stats,
	}
}

func (c *controller) FindDefinition(ctx context.Context, path string, position protocol.Position) ([]protocol.Location, error) {
	sess, err := c.registry.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	return c.gateway.Definition(ctx, sess, path, position)
}

func (c *controller) FindReferences(ctx context.Context, path string, position protocol.Position, includeDeclaration bool) ([]protocol.Location, error) {
	sess, err := c.registry.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	return c.gateway.References(ctx, sess, path, position, includeDeclaration)
}

func (c *controller) Hover(ctx context.Context, path string, position protocol.Position) (*protocol.Hover, error) {
	sess, err := c.registry.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	return c.gateway.Hover(ctx, sess, path, position)
}

func (c *controller) DocumentSymbols(ctx context.Context, path string) ([]protocol.DocumentSymbol, error) {
	sess, err := c.registry.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	return c.gateway.DocumentSymbols(ctx, sess, path)
}

func (c *controller) WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	languages, err := c.registry.DetectLanguages(ctx)
	if err != nil {
		return nil, err
	}

	merged := make([]protocol.SymbolInformation, 0)
	var errs error
	for _, language := range languages {
		sess, err := c.registry.GetOrStart(ctx, language)
		if err != nil {
			c.logger.Warnw("workspace symbol query skipping language", "language", language, "error", err)
			errs = multierr.Append(errs, err)
			continue
		}
		symbols, err := c.gateway.WorkspaceSymbols(ctx, sess, query)
		if err != nil {
			c.logger.Warnw("workspace symbol query failed", "language", language, "error", err)
			errs = multierr.Append(errs, err)
			continue
		}
		merged = append(merged, symbols...)
	}

	if len(merged) == 0 && errs != nil {
		return nil, errs
	}
	return merged, nil
}

func (c *controller) ListLanguages(ctx context.Context) ([]entity.Language, error) {
	return c.registry.DetectLanguages(ctx)
}

func (c *controller) Sessions(ctx context.Context) []entity.SessionInfo {
	return c.registry.Sessions(ctx)
}

func (c *controller) ShutdownAll(ctx context.Context) error {
	return c.registry.ShutdownAll(ctx)
}
