// Package langserver is the typed gateway for issuing LSP requests against a
// live session. It owns parameter construction, result normalization, and the
// per-request deadline; routing a path to a session is the registry's job.
package langserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lspmux/lspmux/src/lspmux/controller/session"
	"github.com/lspmux/lspmux/src/lspmux/mapper"
)

// Module provides a module to inject using fx.
var Module = fx.Provide(New)

const (
	_configRequestTimeoutKey = "requestTimeoutSeconds"
	_defaultRequestTimeout   = 15 * time.Second
)

// Gateway performs typed operations against one language server session.
type Gateway interface {
	// Definition resolves the definition locations for a position, sorted by
	// path and position.
	Definition(ctx context.Context, sess session.Session, path string, position protocol.Position) ([]protocol.Location, error)
	// References resolves all reference locations for a position, sorted by
	// path and position.
	References(ctx context.Context, sess session.Session, path string, position protocol.Position, includeDeclaration bool) ([]protocol.Location, error)
	// Hover returns hover content for a position, or nil when the server has
	// nothing to show.
	Hover(ctx context.Context, sess session.Session, path string, position protocol.Position) (*protocol.Hover, error)
	// DocumentSymbols lists the symbols of one file, hierarchical when the
	// server supports it.
	DocumentSymbols(ctx context.Context, sess session.Session, path string) ([]protocol.DocumentSymbol, error)
	// WorkspaceSymbols queries the session's server for workspace symbols
	// matching the query.
	WorkspaceSymbols(ctx context.Context, sess session.Session, query string) ([]protocol.SymbolInformation, error)
}

// Params are inbound parameters to construct a new Gateway.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	Stats  tally.Scope
	Config config.Provider
}

type gateway struct {
	logger  *zap.SugaredLogger
	stats   tally.Scope
	timeout time.Duration
}

// New returns a Gateway for typed language server requests.
func New(p Params) Gateway {
	timeout := _defaultRequestTimeout
	var seconds int
	if err := p.Config.Get(_configRequestTimeoutKey).Populate(&seconds); err == nil && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &gateway{
		logger:  p.Logger,
		stats:   p.Stats,
		timeout: timeout,
	}
}

func (g *gateway) Definition(ctx context.Context, sess session.Session, path string, position protocol.Position) ([]protocol.Location, error) {
	params := protocol.DefinitionParams{
		TextDocumentPositionParams: mapper.FileToPositionParams(path, position.Line, position.Character),
	}
	raw, err := g.positionalCall(ctx, sess, protocol.MethodTextDocumentDefinition, path, params)
	if err != nil {
		return nil, err
	}

	locations, err := mapper.ResultToLocations(raw)
	if err != nil {
		return nil, err
	}
	mapper.SortLocations(locations)
	return locations, nil
}

func (g *gateway) References(ctx context.Context, sess session.Session, path string, position protocol.Position, includeDeclaration bool) ([]protocol.Location, error) {
	params := protocol.ReferenceParams{
		TextDocumentPositionParams: mapper.FileToPositionParams(path, position.Line, position.Character),
		Context: protocol.ReferenceContext{
			IncludeDeclaration: includeDeclaration,
		},
	}
	raw, err := g.positionalCall(ctx, sess, protocol.MethodTextDocumentReferences, path, params)
	if err != nil {
		return nil, err
	}

	locations, err := mapper.ResultToLocations(raw)
	if err != nil {
		return nil, err
	}
	mapper.SortLocations(locations)
	return locations, nil
}

func (g *gateway) Hover(ctx context.Context, sess session.Session, path string, position protocol.Position) (*protocol.Hover, error) {
	params := protocol.HoverParams{
		TextDocumentPositionParams: mapper.FileToPositionParams(path, position.Line, position.Character),
	}
	raw, err := g.positionalCall(ctx, sess, protocol.MethodTextDocumentHover, path, params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var hover protocol.Hover
	if err := json.Unmarshal(raw, &hover); err != nil {
		return nil, fmt.Errorf("decoding hover result: %w", err)
	}
	return &hover, nil
}

func (g *gateway) DocumentSymbols(ctx context.Context, sess session.Session, path string) ([]protocol.DocumentSymbol, error) {
	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: protocol.DocumentURI(mapper.PathToURI(path)),
		},
	}
	raw, err := g.positionalCall(ctx, sess, protocol.MethodTextDocumentDocumentSymbol, path, params)
	if err != nil {
		return nil, err
	}
	return mapper.ResultToDocumentSymbols(raw)
}

func (g *gateway) WorkspaceSymbols(ctx context.Context, sess session.Session, query string) ([]protocol.SymbolInformation, error) {
	params := protocol.WorkspaceSymbolParams{Query: query}
	raw, err := sess.Call(ctx, protocol.MethodWorkspaceSymbol, params, g.timeout)
	if err != nil {
		return nil, err
	}
	return mapper.ResultToSymbolInformation(raw)
}

// positionalCall opens the document on first use, then issues the request.
func (g *gateway) positionalCall(ctx context.Context, sess session.Session, method string, path string, params interface{}) (json.RawMessage, error) {
	if err := sess.OpenDocumentOnce(ctx, path); err != nil {
		return nil, err
	}
	return sess.Call(ctx, method, params, g.timeout)
}
