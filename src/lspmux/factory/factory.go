// Package factory provides user-defined factories for entities used across tests.
package factory

import (
	"math/rand"

	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/lspmux/lspmux/src/lspmux/entity"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// JSONRPCRequest is a user-defined factory for a JSON-RPC request containing the specified method and parameters.
func JSONRPCRequest(method string, params interface{}) jsonrpc2.Request {
	req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), method, params)
	return req
}

// Range returns a random protocol.Range.
func Range() protocol.Range {
	start := protocol.Position{Line: uint32(rand.Intn(100)), Character: uint32(rand.Intn(100))}
	end := protocol.Position{Line: start.Line + uint32(rand.Intn(100)), Character: uint32(rand.Intn(100))}

	if start.Line == end.Line && start.Character > end.Character {
		end.Character = start.Character + uint32(rand.Intn(100))
	}

	return protocol.Range{
		Start: start,
		End:   end,
	}
}

// Location returns a protocol.Location in the given file with a random range.
func Location(uri string) protocol.Location {
	return protocol.Location{
		URI:   protocol.DocumentURI(uri),
		Range: Range(),
	}
}

// LaunchConfig is a factory for a minimal language launch configuration.
func LaunchConfig(command string, args ...string) entity.LaunchConfig {
	return entity.LaunchConfig{
		Command: command,
		Args:    args,
	}
}
