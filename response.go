package jsonrpc2

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode"
)

// Response is a JSON-RPC response object: either a SuccessResponse or an
// ErrorResponse.
type Response interface {
	// Validate checks that the response conforms to the JSON-RPC
	// specification. It returns nil if the response is valid.
	Validate() error

	// UnmarshalRequestID unmarshals the response's request ID into v.
	UnmarshalRequestID(v interface{}) error

	isResponse()
}

// SuccessResponse encapsulates a successful JSON-RPC response.
type SuccessResponse struct {
	// Version is the JSON-RPC version. It MUST be exactly "2.0".
	Version string `json:"jsonrpc"`

	// RequestID is the ID of the request that produced this response.
	RequestID RawMessage `json:"id"`

	// Result is the user-defined result value produced in response to the
	// request.
	Result RawMessage `json:"result"`
}

// NewSuccessResponse returns a new SuccessResponse containing the given
// result.
//
// If the result cannot be marshaled an ErrorResponse is returned instead.
func NewSuccessResponse(requestID RawMessage, result interface{}) Response {
	res := SuccessResponse{
		Version:   jsonRPCVersion,
		RequestID: requestID,
	}

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return NewErrorResponse(
				requestID,
				fmt.Errorf("could not marshal success result value: %w", err),
			)
		}
		res.Result = data
	}

	return res
}

// Validate checks that the response conforms to the JSON-RPC specification.
func (r SuccessResponse) Validate() error {
	if r.Version != jsonRPCVersion {
		return errors.New(`response version must be "2.0"`)
	}

	if err := validateResponseRequestID(r.RequestID); err != nil {
		return err
	}

	if len(r.Result) == 0 {
		return errors.New("success response must contain a result")
	}

	return nil
}

// UnmarshalRequestID unmarshals the response's request ID into v.
func (r SuccessResponse) UnmarshalRequestID(v interface{}) error {
	return json.Unmarshal(r.RequestID, v)
}

func (SuccessResponse) isResponse() {}

// ErrorResponse encapsulates a failed JSON-RPC response.
type ErrorResponse struct {
	// Version is the JSON-RPC version. It MUST be exactly "2.0".
	Version string `json:"jsonrpc"`

	// RequestID is the ID of the request that produced this response.
	RequestID RawMessage `json:"id"`

	// Error describes the error produced in response to the request.
	Error ErrorInfo `json:"error"`

	// ServerError provides more context for internal errors. The value is
	// never sent to the client.
	ServerError error `json:"-"`
}

// NewErrorResponse returns a new ErrorResponse for the given error.
func NewErrorResponse(requestID RawMessage, err error) ErrorResponse {
	if je, ok := err.(Error); ok {
		return newNativeErrorResponse(requestID, je)
	}

	if isInternalError(err) {
		return ErrorResponse{
			Version:   jsonRPCVersion,
			RequestID: requestID,
			Error: ErrorInfo{
				Code:    InternalErrorCode,
				Message: InternalErrorCode.String(),
			},
			ServerError: err,
		}
	}

	return ErrorResponse{
		Version:   jsonRPCVersion,
		RequestID: requestID,
		Error: ErrorInfo{
			Code:    InternalErrorCode,
			Message: err.Error(),
		},
	}
}

func newNativeErrorResponse(requestID RawMessage, nerr Error) ErrorResponse {
	res := ErrorResponse{
		Version:   jsonRPCVersion,
		RequestID: requestID,
		Error: ErrorInfo{
			Code:    nerr.Code(),
			Message: nerr.Message(),
		},
		ServerError: nerr.cause,
	}

	if data := nerr.Data(); data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			// If an error occurs marshaling the user-defined error data we
			// return an internal server error rather than present the
			// client with an error code but no data.
			return NewErrorResponse(
				requestID,
				fmt.Errorf("could not marshal user-defined error data in %s: %w", nerr, err),
			)
		}
		res.Error.Data = encoded
	}

	return res
}

// Validate checks that the response conforms to the JSON-RPC specification.
func (r ErrorResponse) Validate() error {
	if r.Version != jsonRPCVersion {
		return errors.New(`response version must be "2.0"`)
	}

	return validateResponseRequestID(r.RequestID)
}

// UnmarshalRequestID unmarshals the response's request ID into v.
func (r ErrorResponse) UnmarshalRequestID(v interface{}) error {
	return json.Unmarshal(r.RequestID, v)
}

func (ErrorResponse) isResponse() {}

// validateResponseRequestID checks that id is a valid request ID for use
// within a response.
//
// Unlike validateRequestID, it does not allow the id to be absent: a
// response must always carry an ID, even if that ID is null because the
// request's own ID could not be recovered.
func validateResponseRequestID(id RawMessage) error {
	if len(id) > 0 {
		switch jsonKind(id) {
		case jsonKindString, jsonKindInteger, jsonKindUnsignedInteger, jsonKindFloat, jsonKindNull:
			return nil
		}
	}

	return errors.New(`request ID must be a JSON string, number or null`)
}

// ErrorInfo describes a JSON-RPC error. It is included within an
// ErrorResponse, but it is not itself a Go error.
type ErrorInfo struct {
	Code    ErrorCode  `json:"code"`
	Message string     `json:"message"`
	Data    RawMessage `json:"data,omitempty"`
}

func (e ErrorInfo) String() string {
	return describeError(e.Code, e.Message)
}

// isInternalError returns true if err is considered "internal" to the
// server, and hence should not be shown to the client verbatim.
func isInternalError(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// ResponseSet encapsulates one or more JSON-RPC responses that were parsed
// from a single JSON message.
type ResponseSet struct {
	// Responses contains the responses parsed from the message.
	Responses []Response

	// IsBatch is true if the responses are part of a batch.
	//
	// This is used to disambiguate between a single response and a batch
	// that contains only one response.
	IsBatch bool
}

// UnmarshalResponseSet parses a set of JSON-RPC responses.
func UnmarshalResponseSet(r io.Reader) (ResponseSet, error) {
	br := bufio.NewReader(r)

	for {
		ch, _, err := br.ReadRune()
		if err != nil {
			return ResponseSet{}, err
		}

		if unicode.IsSpace(ch) {
			continue
		}

		if err := br.UnreadRune(); err != nil {
			panic(err) // only occurs if a rune hasn't already been read
		}

		if ch == '[' {
			return unmarshalBatchResponse(br)
		}

		return unmarshalSingleResponse(br)
	}
}

// successOrErrorResponse is the wire shape shared by both response kinds,
// used to sniff which kind a given response object represents.
type successOrErrorResponse struct {
	Version   string     `json:"jsonrpc"`
	RequestID RawMessage `json:"id"`
	Result    RawMessage `json:"result"`
	Error     *ErrorInfo `json:"error"`
}

// Validate checks that the response set is valid and that the responses
// within conform to the JSON-RPC specification.
func (rs ResponseSet) Validate() error {
	if rs.IsBatch {
		if len(rs.Responses) == 0 {
			return errors.New("batches must contain at least one response")
		}
	} else if len(rs.Responses) != 1 {
		return errors.New("non-batch response sets must contain exactly one response")
	}

	for _, res := range rs.Responses {
		if err := res.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func unmarshalSingleResponse(r *bufio.Reader) (ResponseSet, error) {
	var res successOrErrorResponse

	if err := unmarshalResponseJSON(r, &res); err != nil {
		return ResponseSet{}, err
	}

	return ResponseSet{
		Responses: []Response{normalizeResponse(res)},
		IsBatch:   false,
	}, nil
}

func unmarshalBatchResponse(r *bufio.Reader) (ResponseSet, error) {
	var batch []successOrErrorResponse

	if err := unmarshalResponseJSON(r, &batch); err != nil {
		return ResponseSet{}, err
	}

	set := ResponseSet{
		Responses: make([]Response, len(batch)),
		IsBatch:   true,
	}

	for i, res := range batch {
		set.Responses[i] = normalizeResponse(res)
	}

	return set, nil
}

func unmarshalResponseJSON(r io.Reader, v interface{}) error {
	err := unmarshalStrict(r, v)

	if isJSONError(err) {
		return fmt.Errorf("unable to parse response: %w", err)
	}

	return err
}

// normalizeResponse returns a response of a specific type based on the
// content of res.
func normalizeResponse(res successOrErrorResponse) Response {
	if res.Error != nil {
		return ErrorResponse{
			Version:   res.Version,
			RequestID: res.RequestID,
			Error:     *res.Error,
		}
	}

	return SuccessResponse{
		Version:   res.Version,
		RequestID: res.RequestID,
		Result:    res.Result,
	}
}
