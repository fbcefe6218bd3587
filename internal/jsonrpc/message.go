package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/wagiedev/toolbridge-go/internal/errors"
)

// Version is the only protocol version written and accepted.
const Version = "2.0"

// Kind identifies which variant of the tagged union a Message carries.
type Kind int

const (
	// KindInvalid is a document that fits none of the variants.
	KindInvalid Kind = iota
	// KindRequest carries id, method, and params.
	KindRequest
	// KindNotification carries method and params without an id.
	KindNotification
	// KindResult is a success response carrying id and result.
	KindResult
	// KindError is an error response carrying id and an error object.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResult:
		return "result"
	case KindError:
		return "error"
	default:
		return "invalid"
	}
}

// Message is one JSON-RPC document.
//
// Wire formats:
//
//	{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{...}}
//	{"jsonrpc":"2.0","method":"notifications/initialized","params":{}}
//	{"jsonrpc":"2.0","id":1,"result":{...}}
//	{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}
type Message struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *int64                `json:"id,omitempty"`
	Method  string                `json:"method,omitempty"`
	Params  json.RawMessage       `json:"params,omitempty"`
	Result  json.RawMessage       `json:"result,omitempty"`
	Error   *errors.ProtocolError `json:"error,omitempty"`
}

// NewRequest builds a request message.
func NewRequest(id int64, method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	return &Message{JSONRPC: Version, ID: &id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification message.
func NewNotification(method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	return &Message{JSONRPC: Version, Method: method, Params: raw}, nil
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return json.RawMessage("{}"), nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	return raw, nil
}

// Kind classifies the message.
func (m *Message) Kind() Kind {
	switch {
	case m.ID != nil && m.Method != "":
		return KindRequest
	case m.ID == nil && m.Method != "":
		return KindNotification
	case m.ID != nil && m.Error != nil:
		return KindError
	case m.ID != nil:
		return KindResult
	default:
		return KindInvalid
	}
}

// IsResponse reports whether the message is a success or error response.
func (m *Message) IsResponse() bool {
	k := m.Kind()

	return k == KindResult || k == KindError
}

// Encode serializes the message as a single newline-terminated line.
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	return append(data, '\n'), nil
}

// Parse decodes one line into a Message. Documents that are valid JSON but
// fit no variant are rejected.
func Parse(line []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, err
	}

	if msg.Kind() == KindInvalid {
		return nil, fmt.Errorf("not a json-rpc message")
	}

	return &msg, nil
}
