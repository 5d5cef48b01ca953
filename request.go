package jsonrpc2

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/lattice-rpc/jsonrpc2/internal/jsonx"
)

// jsonRPCVersion is the version that must appear in the "jsonrpc" field of
// JSON-RPC 2.0 requests and responses.
const jsonRPCVersion = "2.0"

// Request encapsulates a JSON-RPC request.
type Request struct {
	// Version is the JSON-RPC version. It MUST be exactly "2.0".
	Version string `json:"jsonrpc"`

	// ID uniquely identifies requests that expect a response, that is RPC
	// calls as opposed to notifications. It MUST be a JSON string, number,
	// or null. If ID itself is absent, the request is a notification.
	ID RawMessage `json:"id,omitempty"`

	// Method is the name of the RPC method to be invoked.
	//
	// Method names that begin with "rpc." are reserved for system
	// extensions and MUST NOT be used for anything else; this package
	// enforces that reservation at registration time (see Server.AddMethod
	// and Server.AddNotification), not here.
	Method string `json:"method"`

	// Parameters holds the parameter values to be used during invocation of
	// the method. It MUST be a structured value: a JSON array, a JSON
	// object, or absent/null.
	Parameters RawMessage `json:"params,omitempty"`

	// grammarErr, if non-nil, records that this element of a batch could not
	// be decoded into a Request at all (the original's server.hpp reaches
	// this by trying HandleSingleRequest on a JSON value that isn't an
	// object). ValidateServerSide reports it in place of the usual
	// field-by-field checks, so a single malformed batch element still
	// yields a well-formed {id:null,error:...} entry instead of aborting the
	// whole batch.
	grammarErr error
}

// NewCallRequest returns a Request that expects a response, with id encoded
// as the request's ID and params encoded as its structured parameters.
func NewCallRequest(id interface{}, method string, params interface{}) (Request, error) {
	return newRequest(id, method, params, true)
}

// NewNotifyRequest returns a Request that does not expect a response, with
// params encoded as its structured parameters.
func NewNotifyRequest(method string, params interface{}) (Request, error) {
	return newRequest(nil, method, params, false)
}

func newRequest(id interface{}, method string, params interface{}, isCall bool) (Request, error) {
	req := Request{
		Version: jsonRPCVersion,
		Method:  method,
	}

	if isCall {
		data, err := json.Marshal(id)
		if err != nil {
			return Request{}, fmt.Errorf("unable to marshal request ID: %w", err)
		}
		req.ID = data
	}

	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("unable to marshal request parameters: %w", err)
		}
		req.Parameters = data
	}

	return req, nil
}

// IsNotification returns true if r is a notification, as opposed to an RPC
// call that expects a response.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0
}

// ValidateServerSide returns true if the request is valid as received by a
// server. If r is invalid it returns a reserved-code Error describing the
// problem.
func (r Request) ValidateServerSide() (Error, bool) {
	if r.grammarErr != nil {
		var je Error
		if errors.As(r.grammarErr, &je) {
			return je, false
		}
		return NewErrorWithReservedCode(InvalidRequestCode, WithCause(r.grammarErr)), false
	}

	if r.Version != jsonRPCVersion {
		return NewErrorWithReservedCode(
			InvalidRequestCode,
			WithMessage(`invalid request: missing jsonrpc field set to "2.0"`),
		), false
	}

	if err, ok := validateRequestID(r.ID); !ok {
		return err, false
	}

	if err, ok := validateRequestParameters(r.Parameters); !ok {
		return err, false
	}

	return Error{}, true
}

// ValidateClientSide returns true if the request is valid as produced by a
// client, before it is sent to a server. It reports the same conditions as
// ValidateServerSide, but using NewClientSideError so that a caller using
// errors.As(&Error{}) sees a consistent error type regardless of whether the
// failure was local or reported by the server.
func (r Request) ValidateClientSide() (Error, bool) {
	if r.Version != jsonRPCVersion {
		return NewClientSideError(
			InvalidRequestCode,
			`invalid request: missing jsonrpc field set to "2.0"`,
			nil,
		), false
	}

	if err, ok := validateRequestID(r.ID); !ok {
		clientErr := NewClientSideError(err.Code(), err.Message(), err.Data())
		clientErr.cause = err.Unwrap()
		return clientErr, false
	}

	if err, ok := validateRequestParameters(r.Parameters); !ok {
		return NewClientSideError(err.Code(), err.Message(), err.Data()), false
	}

	return Error{}, true
}

// UnmarshalParameters is a convenience method for unmarshaling request
// parameters into a Go value.
//
// It returns the appropriate native JSON-RPC error if r.Parameters cannot be
// unmarshaled into v. options configure the decode — see
// jsonx.WithUnknownFields and jsonx.WithStructValidation.
//
// If v implements the Validatable interface, it calls v.Validate() after
// unmarshaling successfully. If validation fails it wraps the validation
// error in the appropriate native JSON-RPC error.
func (r Request) UnmarshalParameters(v interface{}, options ...jsonx.UnmarshalOption) error {
	if err := jsonx.Unmarshal(r.Parameters, v, options...); err != nil {
		return InvalidParameters(WithCause(err))
	}

	if v, ok := v.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return InvalidParameters(WithCause(err))
		}
	}

	return nil
}

// validateRequestID returns false if id is present but is not one of the
// accepted request ID types.
func validateRequestID(id RawMessage) (Error, bool) {
	if len(id) == 0 {
		return Error{}, true
	}

	kind := jsonKind(id)
	if !json.Valid(id) {
		kind = jsonKindUnknown
	}

	switch kind {
	case jsonKindString, jsonKindInteger, jsonKindUnsignedInteger, jsonKindFloat, jsonKindNull:
		return Error{}, true
	case jsonKindUnknown:
		return NewErrorWithReservedCode(
			ParseErrorCode,
			WithCause(fmt.Errorf("unexpected end of JSON input")),
		), false
	default:
		return NewErrorWithReservedCode(
			InvalidRequestCode,
			WithMessage(`invalid request: id field must be a number, string or null`),
		), false
	}
}

// recoverRequestID returns id if it is well-formed enough to echo back in an
// error envelope (a JSON string, number, or null); otherwise it returns nil,
// meaning the response's id must be reported as null.
//
// This mirrors the original's HandleSingleRequest, which recovers the id for
// error reporting purposes before running any grammar validation, so that a
// request with a valid id but some other grammar violation still gets a
// useful id in its error response.
func recoverRequestID(id RawMessage) RawMessage {
	if len(id) == 0 {
		return nil
	}

	switch jsonKind(id) {
	case jsonKindString, jsonKindInteger, jsonKindUnsignedInteger, jsonKindFloat, jsonKindNull:
		return id
	default:
		return nil
	}
}

// validateRequestParameters returns false if params is present but is
// neither a JSON array, a JSON object, nor null.
func validateRequestParameters(params RawMessage) (Error, bool) {
	if len(params) == 0 {
		return Error{}, true
	}

	switch jsonKind(params) {
	case jsonKindArray, jsonKindObject, jsonKindNull:
		return Error{}, true
	default:
		return NewErrorWithReservedCode(
			InvalidParametersCode,
			WithMessage("invalid request: params field must be an array, object or null"),
		), false
	}
}

// RequestSet encapsulates one or more JSON-RPC requests that were parsed
// from a single JSON message.
type RequestSet struct {
	// Requests contains the requests parsed from the message.
	Requests []Request

	// IsBatch is true if the requests are part of a batch.
	//
	// This is used to disambiguate between a single request and a batch
	// that contains only one request.
	IsBatch bool
}

// ParseRequestSet reads and parses a JSON-RPC request or request batch from
// r.
//
// If there is a problem parsing the request or the request is malformed, an
// Error is returned. Any other non-nil error should be considered an IO
// error.
//
// On success it returns a request set containing well-formed (but not
// necessarily valid) requests.
func ParseRequestSet(r io.Reader) (RequestSet, error) {
	br := bufio.NewReader(r)

	for {
		ch, _, err := br.ReadRune()
		if err != nil {
			return RequestSet{}, err
		}

		if unicode.IsSpace(ch) {
			continue
		}

		if err := br.UnreadRune(); err != nil {
			panic(err) // only occurs if a rune hasn't already been read
		}

		if ch == '[' {
			return parseBatchRequest(br)
		}

		return parseSingleRequest(br)
	}
}

// ValidateServerSide returns true if rs has a valid shape: a batch with at
// least one element, or a non-batch with exactly one.
//
// It does not validate the grammar of the individual requests within rs —
// batch elements are independent (spec: batch elements are independent), so
// a malformed element must not prevent its siblings from being dispatched.
// Callers validate each Request individually, at the point of dispatch, via
// Request.ValidateServerSide, and envelope failures per element instead of
// failing the whole batch.
//
// An empty batch (an empty top-level JSON array) is itself invalid: it is
// reported as a single invalid-request error rather than yielding an empty
// response array, matching the JSON-RPC 2.0 specification's own worked
// example rather than a literal empty-array round-trip.
func (rs RequestSet) ValidateServerSide() (Error, bool) {
	return rs.validateShape()
}

// ValidateClientSide returns true if every request within rs is valid, as
// produced by a client.
func (rs RequestSet) ValidateClientSide() (Error, bool) {
	if rs.IsBatch {
		if len(rs.Requests) == 0 {
			return NewClientSideError(
				InvalidRequestCode,
				"batches must contain at least one request",
				nil,
			), false
		}
	} else if len(rs.Requests) != 1 {
		return NewClientSideError(
			InvalidRequestCode,
			"non-batch request sets must contain exactly one request",
			nil,
		), false
	}

	for _, req := range rs.Requests {
		if err, ok := req.ValidateClientSide(); !ok {
			return err, false
		}
	}

	return Error{}, true
}

func (rs RequestSet) validateShape() (Error, bool) {
	if rs.IsBatch {
		if len(rs.Requests) == 0 {
			return NewErrorWithReservedCode(
				InvalidRequestCode,
				WithMessage("batches must contain at least one request"),
			), false
		}
	} else if len(rs.Requests) != 1 {
		return NewErrorWithReservedCode(
			InvalidRequestCode,
			WithMessage("non-batch request sets must contain exactly one request"),
		), false
	}

	return Error{}, true
}

func parseSingleRequest(r *bufio.Reader) (RequestSet, error) {
	var req Request

	if err := parseRequestJSON(r, &req); err != nil {
		return RequestSet{}, err
	}

	return RequestSet{
		Requests: []Request{req},
		IsBatch:  false,
	}, nil
}

// parseBatchRequest parses a JSON-RPC batch from r.
//
// Unlike a naive decode into []Request, each element is parsed
// independently: a single malformed element (one that isn't a JSON object,
// or that doesn't decode cleanly into a Request) does not abort the parse of
// its siblings. It is instead recorded on that element's grammarErr field,
// so HandleSingle can later report it as its own {id:null,error:...}
// response, matching the original's server.hpp, which loops over the batch
// calling HandleSingleRequest(r) on each raw element in turn.
func parseBatchRequest(r *bufio.Reader) (RequestSet, error) {
	var rawElements []RawMessage

	if err := parseRequestJSON(r, &rawElements); err != nil {
		return RequestSet{}, err
	}

	reqs := make([]Request, len(rawElements))
	for i, raw := range rawElements {
		reqs[i] = parseRequestElement(raw)
	}

	return RequestSet{
		Requests: reqs,
		IsBatch:  true,
	}, nil
}

// parseRequestElement decodes a single batch element. If raw isn't a JSON
// object, or doesn't decode cleanly into a Request, the returned Request
// carries a grammarErr instead of an error being propagated to the caller.
func parseRequestElement(raw RawMessage) Request {
	if jsonKind(raw) != jsonKindObject {
		return Request{
			grammarErr: NewErrorWithReservedCode(
				InvalidRequestCode,
				WithMessage("invalid request: expected a JSON object"),
			),
		}
	}

	var req Request
	if err := strictJSON.Unmarshal(raw, &req); err != nil {
		return Request{
			grammarErr: NewErrorWithReservedCode(
				InvalidRequestCode,
				WithMessage("invalid request: %s", err),
			),
		}
	}

	return req
}

func parseRequestJSON(r io.Reader, v interface{}) error {
	err := unmarshalStrict(r, v)

	if isJSONError(err) {
		return NewErrorWithReservedCode(
			ParseErrorCode,
			WithCause(fmt.Errorf("unable to parse request: %w", err)),
		)
	}

	return err
}

// Validatable is an interface for parameter values that provide their own
// validation.
type Validatable interface {
	// Validate returns a non-nil error if the value is invalid.
	//
	// The returned error, if non-nil, is always wrapped in a JSON-RPC
	// "invalid parameters" error, and therefore should not itself be a
	// JSON-RPC error.
	Validate() error
}
