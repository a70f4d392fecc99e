// Package mapper translates between wire-level messages, LSP protocol types,
// and the service's domain entities.
package mapper

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func wrapErrParse(err error) error {
	return fmt.Errorf("parsing request parameters: %w", err)
}

// PathToURI converts an absolute file path to an LSP DocumentURI.
func PathToURI(path string) uri.URI {
	return uri.File(path)
}

// URIToPath converts an LSP DocumentURI back to a file path.
func URIToPath(u uri.URI) string {
	return u.Filename()
}

// WorkspaceToInitializeParams builds the initialize request for a workspace
// root. Hierarchical document symbols are requested; diagnostics support is
// pared down since the proxy forwards rather than renders them.
func WorkspaceToInitializeParams(workspaceRoot string) *protocol.InitializeParams {
	rootURI := PathToURI(workspaceRoot)
	return &protocol.InitializeParams{
		RootURI: protocol.DocumentURI(rootURI),
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
					HierarchicalDocumentSymbolSupport: true,
				},
				PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{
					RelatedInformation: false,
				},
			},
		},
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{
				URI:  string(rootURI),
				Name: workspaceRoot,
			},
		},
	}
}

// FileToDidOpenParams builds the didOpen notification for lazily opening a
// document before its first positional request.
func FileToDidOpenParams(path string, languageID string, text string) *protocol.DidOpenTextDocumentParams {
	return &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(PathToURI(path)),
			LanguageID: protocol.LanguageIdentifier(languageID),
			Version:    1,
			Text:       text,
		},
	}
}

// FileToPositionParams builds the common text document position parameters.
func FileToPositionParams(path string, line, character uint32) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: protocol.DocumentURI(PathToURI(path)),
		},
		Position: protocol.Position{
			Line:      line,
			Character: character,
		},
	}
}

// ResultToLocations normalizes the result of a definition-shaped request.
// Servers may answer with null, a single Location, an array of Locations, or
// an array of LocationLinks; callers always receive a flat Location slice.
func ResultToLocations(raw json.RawMessage) ([]protocol.Location, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []protocol.Location{}, nil
	}

	// A LocationLink array also decodes into []Location with empty members,
	// so only accept this shape when the uri member is actually present.
	var locations []protocol.Location
	if err := json.Unmarshal(raw, &locations); err == nil {
		if len(locations) == 0 || locations[0].URI != "" {
			return locations, nil
		}
	}

	var single protocol.Location
	if err := json.Unmarshal(raw, &single); err == nil && single.URI != "" {
		return []protocol.Location{single}, nil
	}

	var links []protocol.LocationLink
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, wrapErrParse(err)
	}
	locations = make([]protocol.Location, 0, len(links))
	for _, link := range links {
		locations = append(locations, protocol.Location{
			URI:   link.TargetURI,
			Range: link.TargetRange,
		})
	}
	return locations, nil
}

// ResultToDocumentSymbols normalizes the result of textDocument/documentSymbol.
// Servers answer with either hierarchical DocumentSymbols or a flat
// SymbolInformation list; the flat form is lifted into childless
// DocumentSymbols.
func ResultToDocumentSymbols(raw json.RawMessage) ([]protocol.DocumentSymbol, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []protocol.DocumentSymbol{}, nil
	}

	var probe []struct {
		Location *protocol.Location `json:"location"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, wrapErrParse(err)
	}
	if len(probe) == 0 {
		return []protocol.DocumentSymbol{}, nil
	}

	if probe[0].Location == nil {
		var symbols []protocol.DocumentSymbol
		if err := json.Unmarshal(raw, &symbols); err != nil {
			return nil, wrapErrParse(err)
		}
		return symbols, nil
	}

	var flat []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, wrapErrParse(err)
	}
	symbols := make([]protocol.DocumentSymbol, 0, len(flat))
	for _, si := range flat {
		symbols = append(symbols, protocol.DocumentSymbol{
			Name:           si.Name,
			Kind:           si.Kind,
			Deprecated:     si.Deprecated,
			Range:          si.Location.Range,
			SelectionRange: si.Location.Range,
		})
	}
	return symbols, nil
}

// ResultToSymbolInformation normalizes the result of workspace/symbol.
func ResultToSymbolInformation(raw json.RawMessage) ([]protocol.SymbolInformation, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []protocol.SymbolInformation{}, nil
	}
	var symbols []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, wrapErrParse(err)
	}
	return symbols, nil
}

// SortLocations orders locations by path, then line, then character, so
// results are stable regardless of server answer order.
func SortLocations(locations []protocol.Location) {
	sort.Slice(locations, func(i, j int) bool {
		if locations[i].URI != locations[j].URI {
			return locations[i].URI < locations[j].URI
		}
		if locations[i].Range.Start.Line != locations[j].Range.Start.Line {
			return locations[i].Range.Start.Line < locations[j].Range.Start.Line
		}
		return locations[i].Range.Start.Character < locations[j].Range.Start.Character
	})
}
