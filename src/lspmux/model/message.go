// Package model contains the wire-level representations used by the lspmux service.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the JSON-RPC protocol version sent on every message.
const Version = "2.0"

// MessageKind distinguishes the three shapes of messages a language server
// may send to the proxy.
type MessageKind int

const (
	// KindResponse is a reply to a request previously issued by the proxy.
	KindResponse MessageKind = iota
	// KindNotification is a server-to-client message with no id, such as
	// textDocument/publishDiagnostics or window/logMessage.
	KindNotification
	// KindServerRequest is a server-to-client request carrying an id the
	// server issued, such as workspace/configuration.
	KindServerRequest
)

// String implements fmt.Stringer.
func (k MessageKind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	case KindServerRequest:
		return "serverRequest"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ID is a request id, which JSON-RPC allows to be either a number or a
// string. Only one form is set; the number form is used when the name is
// empty.
type ID struct {
	name   string
	number int64
}

var (
	_ json.Marshaler   = (*ID)(nil)
	_ json.Unmarshaler = (*ID)(nil)
)

// NewNumberID returns a new number request id.
func NewNumberID(v int64) ID { return ID{number: v} }

// NewStringID returns a new string request id.
func NewStringID(v string) ID { return ID{name: v} }

// Number returns the numeric form, reporting false for string ids.
func (id ID) Number() (int64, bool) {
	if id.name != "" {
		return 0, false
	}
	return id.number, true
}

// String implements fmt.Stringer.
func (id ID) String() string {
	if id.name != "" {
		return id.name
	}
	return strconv.FormatInt(id.number, 10)
}

// MarshalJSON implements json.Marshaler.
func (id *ID) MarshalJSON() ([]byte, error) {
	if id.name != "" {
		return json.Marshal(id.name)
	}
	return json.Marshal(id.number)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID{}
	if err := json.Unmarshal(data, &id.number); err == nil {
		return nil
	}
	return json.Unmarshal(data, &id.name)
}

// Message is a JSON-RPC 2.0 envelope exchanged with a language server over
// its stdio transport. A single type covers requests, notifications,
// responses, and error responses; Kind reports which variant an inbound
// message is. An inbound error response with a null id leaves ID nil.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of a JSON-RPC error response.
type ErrorObject struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Kind classifies an inbound message by the presence of its id and method
// members. Responses carry the id of a request the proxy issued and no
// method; anything with a method is server initiated.
func (m *Message) Kind() MessageKind {
	switch {
	case m.Method == "":
		return KindResponse
	case m.ID != nil:
		return KindServerRequest
	default:
		return KindNotification
	}
}

// NewRequest builds a request envelope for the given id, method and params.
// Params are marshalled eagerly so serialization failures surface to the
// caller rather than the transport.
func NewRequest(id int64, method string, params interface{}) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s params: %w", method, err)
	}
	wireID := NewNumberID(id)
	return &Message{
		JSONRPC: Version,
		ID:      &wireID,
		Method:  method,
		Params:  raw,
	}, nil
}

// NewNotification builds a notification envelope, which carries no id and
// expects no response.
func NewNotification(method string, params interface{}) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s params: %w", method, err)
	}
	return &Message{
		JSONRPC: Version,
		Method:  method,
		Params:  raw,
	}, nil
}

func marshalParams(params interface{}) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
