package jsonrpc

// ErrorCode is a JSON-RPC 2.0 error code. The dispatcher's fault taxonomy is
// a closed set: the three standard codes below plus two codes from the
// implementation-defined server-error range.
type ErrorCode int

const (
	// ErrorCodeParseError covers malformed envelope JSON and parameter
	// conversion failures.
	ErrorCodeParseError ErrorCode = -32700
	// ErrorCodeMethodNotFound indicates the normalized procedure name is not
	// registered.
	ErrorCodeMethodNotFound ErrorCode = -32601
	// ErrorCodeInternalError indicates an interceptor hook faulted before
	// dispatch.
	ErrorCodeInternalError ErrorCode = -32603
	// ErrorCodeExecutionError covers any fault raised by the invoked
	// procedure other than an authorization fault.
	ErrorCodeExecutionError ErrorCode = -32000
	// ErrorCodeUnauthorized indicates the invoked procedure signaled an
	// authorization fault.
	ErrorCodeUnauthorized ErrorCode = -32001
)
