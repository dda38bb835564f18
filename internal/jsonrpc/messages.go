package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the JSON-RPC protocol version stamped on every response.
const ProtocolVersion = "2.0"

// Request is one decoded inbound envelope. Params holds the name-keyed raw
// wire values; binding to a procedure's formal parameters happens later, one
// parameter at a time. A nil ID marks a notification-style call. Unknown
// extra fields in the body are ignored by decoding.
type Request struct {
	ID     *RequestID                 `json:"id,omitempty"`
	Method string                     `json:"method"`
	Params map[string]json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no identifier.
func (r *Request) IsNotification() bool {
	return r.ID.IsNil()
}

// Response is the outbound envelope. Exactly one of Result or Error is set.
// The id member is always present and serializes as null when the request
// carried no identifier or the identifier could not be recovered; the other
// null-valued members are omitted.
type Response struct {
	ID             *RequestID      `json:"id"`
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
}

// Error is the structured fault carried by a failed Response.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: %s (%d)", e.Message, e.Code)
}

// NewResultResponse builds a success envelope, marshaling result eagerly so
// encoding defects surface at the point of construction.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &Response{
		ID:             id,
		JSONRPCVersion: ProtocolVersion,
		Result:         raw,
	}, nil
}

// NewErrorResponse builds a fault envelope with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		ID:             id,
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
