package jsonrpc2

import "fmt"

// ErrorCode is a JSON-RPC error code.
//
// As per the JSON-RPC specification, the error codes from and including
// -32768 to -32000 are reserved for pre-defined errors. Within that range,
// -32000 to -32099 is further reserved for application-defined "server
// errors" rather than the five errors defined by the specification itself.
type ErrorCode int

const (
	// ParseErrorCode indicates that the server failed to parse a JSON-RPC
	// request.
	ParseErrorCode ErrorCode = -32700

	// InvalidRequestCode indicates that the server received a well-formed but
	// otherwise invalid JSON-RPC request.
	InvalidRequestCode ErrorCode = -32600

	// MethodNotFoundCode indicates that the server received a request for an
	// RPC method that does not exist.
	MethodNotFoundCode ErrorCode = -32601

	// InvalidParametersCode indicates that the server received a request that
	// contained malformed or invalid parameters.
	InvalidParametersCode ErrorCode = -32602

	// InternalErrorCode indicates that some other error condition was raised
	// within the RPC server.
	InternalErrorCode ErrorCode = -32603

	// serverErrorRangeMin and serverErrorRangeMax bound the band reserved for
	// application-defined server errors.
	serverErrorRangeMin ErrorCode = -32099
	serverErrorRangeMax ErrorCode = -32000
)

// Kind classifies an ErrorCode into one of the kinds described by the
// JSON-RPC specification.
type Kind int

const (
	// KindInvalid is the kind of a code that is not a sensible JSON-RPC error
	// code: it is neither one of the five predefined codes nor in the
	// server-error band, whether or not it falls in the reserved range.
	KindInvalid Kind = iota

	// KindParseError is the kind of ParseErrorCode.
	KindParseError

	// KindInvalidRequest is the kind of InvalidRequestCode.
	KindInvalidRequest

	// KindMethodNotFound is the kind of MethodNotFoundCode.
	KindMethodNotFound

	// KindInvalidParameters is the kind of InvalidParametersCode.
	KindInvalidParameters

	// KindInternalError is the kind of InternalErrorCode.
	KindInternalError

	// KindServerError is the kind of a code in the -32000..-32099 band that
	// is not one of the five predefined codes.
	KindServerError
)

// Kind returns the classification of c.
func (c ErrorCode) Kind() Kind {
	switch c {
	case ParseErrorCode:
		return KindParseError
	case InvalidRequestCode:
		return KindInvalidRequest
	case MethodNotFoundCode:
		return KindMethodNotFound
	case InvalidParametersCode:
		return KindInvalidParameters
	case InternalErrorCode:
		return KindInternalError
	}

	if c >= serverErrorRangeMin && c <= serverErrorRangeMax {
		return KindServerError
	}

	return KindInvalid
}

// IsReserved returns true if c falls within the range of error codes reserved
// for pre-defined errors.
func (c ErrorCode) IsReserved() bool {
	return c >= -32768 && c <= -32000
}

// IsPredefined returns true if c is one of the five error codes defined by
// the JSON-RPC specification itself, as opposed to the application-reserved
// server-error band or an application-defined code outside the reserved
// range.
func (c ErrorCode) IsPredefined() bool {
	switch c {
	case ParseErrorCode,
		InvalidRequestCode,
		MethodNotFoundCode,
		InvalidParametersCode,
		InternalErrorCode:
		return true
	default:
		return false
	}
}

// String returns a brief description of the error.
func (c ErrorCode) String() string {
	switch c {
	case ParseErrorCode:
		return "parse error"
	case InvalidRequestCode:
		return "invalid request"
	case MethodNotFoundCode:
		return "method not found"
	case InvalidParametersCode:
		return "invalid parameters"
	case InternalErrorCode:
		return "internal server error"
	}

	if c.Kind() == KindServerError {
		return "server error"
	}

	if c.IsReserved() {
		return "undefined reserved error"
	}

	return "unknown error"
}

// describeError returns a short string containing the most useful information
// from an error code and a user-defined message.
func describeError(code ErrorCode, message string) string {
	if message == "" || message == code.String() {
		// The error message does not contain any more information than the
		// description of the error code.
		return fmt.Sprintf("[%d] %s", code, code)
	}

	if code.IsPredefined() {
		// We have some different information in the error message, and the code
		// is predefined so we display both.
		return fmt.Sprintf("[%d] %s: %s", code, code, message)
	}

	// Otherwise, the code is not predefined which makes its description quite
	// meaningless, so we only show the provided error message.
	return fmt.Sprintf("[%d] %s", code, message)
}
