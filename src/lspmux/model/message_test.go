package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageKind(t *testing.T) {
	id := NewNumberID(7)
	strID := NewStringID("reg-1")
	tests := []struct {
		name string
		msg  Message
		want MessageKind
	}{
		{
			name: "response with result",
			msg:  Message{JSONRPC: Version, ID: &id, Result: json.RawMessage(`{}`)},
			want: KindResponse,
		},
		{
			name: "error response",
			msg:  Message{JSONRPC: Version, ID: &id, Error: &ErrorObject{Code: -32603, Message: "boom"}},
			want: KindResponse,
		},
		{
			name: "error response with null id",
			msg:  Message{JSONRPC: Version, Error: &ErrorObject{Code: -32700, Message: "parse error"}},
			want: KindResponse,
		},
		{
			name: "notification",
			msg:  Message{JSONRPC: Version, Method: "textDocument/publishDiagnostics"},
			want: KindNotification,
		},
		{
			name: "server request",
			msg:  Message{JSONRPC: Version, ID: &id, Method: "workspace/configuration"},
			want: KindServerRequest,
		},
		{
			name: "server request with string id",
			msg:  Message{JSONRPC: Version, ID: &strID, Method: "client/registerCapability"},
			want: KindServerRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Kind())
		})
	}
}

func TestIDForms(t *testing.T) {
	num := NewNumberID(9)
	v, ok := num.Number()
	assert.True(t, ok)
	assert.Equal(t, int64(9), v)
	assert.Equal(t, "9", num.String())

	str := NewStringID("reg-1")
	_, ok = str.Number()
	assert.False(t, ok)
	assert.Equal(t, "reg-1", str.String())
}

func TestUnmarshalStringID(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"reg-1","method":"client/registerCapability","params":{}}`), &msg))

	require.NotNil(t, msg.ID)
	_, numeric := msg.ID.Number()
	assert.False(t, numeric)
	assert.Equal(t, "reg-1", msg.ID.String())
	assert.Equal(t, KindServerRequest, msg.Kind())
}

func TestUnmarshalNullID(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error"}}`), &msg))

	assert.Nil(t, msg.ID)
	assert.Equal(t, KindResponse, msg.Kind())
	require.NotNil(t, msg.Error)
	assert.Equal(t, int64(-32700), msg.Error.Code)
}

func TestIDRoundTrip(t *testing.T) {
	num := NewNumberID(3)
	str := NewStringID("a1")
	msg := Message{JSONRPC: Version, ID: &num, Result: json.RawMessage(`null`)}

	data, err := json.Marshal(&msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":3,"result":null}`, string(data))

	msg.ID = &str
	data, err = json.Marshal(&msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"a1","result":null}`, string(data))
}

func TestNewRequest(t *testing.T) {
	msg, err := NewRequest(3, "textDocument/definition", map[string]int{"line": 4})
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":3,"method":"textDocument/definition","params":{"line":4}}`, string(data))
}

func TestNewRequestBadParams(t *testing.T) {
	_, err := NewRequest(1, "initialize", func() {})
	assert.Error(t, err)
}

func TestNewNotificationOmitsID(t *testing.T) {
	msg, err := NewNotification("initialized", struct{}{})
	require.NoError(t, err)
	assert.Nil(t, msg.ID)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"initialized","params":{}}`, string(data))
}

func TestNilParamsOmitted(t *testing.T) {
	msg, err := NewNotification("exit", nil)
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"exit"}`, string(data))
}
