package jsonrpc2

import (
	"fmt"

	"go.uber.org/atomic"
)

// ClientVersion selects the wire dialect a Client uses to compose requests.
type ClientVersion int

const (
	// V2 selects JSON-RPC 2.0 request composition: a "jsonrpc":"2.0" field,
	// an absent id for notifications, and params omitted when empty.
	V2 ClientVersion = iota

	// V1 selects the older JSON-RPC 1.0 dialect: no "jsonrpc" field,
	// notifications carry an explicit "id":null, and params is always
	// present (null when there are none).
	V1
)

// Connector sends a request to a JSON-RPC server and returns the raw
// response bytes.
//
// A Connector MUST return an empty byte slice for a successful notification
// if the underlying transport has no body to return. Any transport-level
// failure is returned as-is and is propagated to the caller of the Client
// method that triggered it.
type Connector interface {
	Send(request []byte) ([]byte, error)
}

// Client is a JSON-RPC client built on top of a Connector. It has no
// knowledge of the underlying transport; it only composes and parses
// JSON-RPC envelopes.
type Client struct {
	// Connector delivers requests to, and retrieves responses from, the
	// server.
	Connector Connector

	// Version selects the wire dialect used to compose outgoing requests.
	// The zero value is V2.
	Version ClientVersion

	nextID atomic.Uint64
}

// NewClient returns a new client that sends requests through connector
// using the given version dialect.
func NewClient(connector Connector, version ClientVersion) *Client {
	return &Client{
		Connector: connector,
		Version:   version,
	}
}

// NextID returns a locally-generated request ID suitable for use with
// CallMethod/CallMethodNamed, incrementing an internal counter.
//
// Callers are free to supply their own IDs instead; this is a convenience
// for the common case of a client that has no other natural ID source.
func (c *Client) NextID() int {
	return int(c.nextID.Inc())
}

// CallResult is the result of a successful JSON-RPC method call.
type CallResult struct {
	// ID is the request ID echoed by the server, preserved in its original
	// JSON shape (an integer id and the string "1" are never confused).
	ID ID

	// Result is the raw, undecoded "result" value from the response.
	Result RawMessage
}

// CallMethod invokes the method named name with the given positional
// parameters, and waits for a response.
func (c *Client) CallMethod(id interface{}, name string, params ...interface{}) (CallResult, error) {
	return c.call(id, name, positionalParams(params))
}

// CallMethodNamed invokes the method named name with the given named
// parameters, and waits for a response.
func (c *Client) CallMethodNamed(id interface{}, name string, params map[string]interface{}) (CallResult, error) {
	return c.call(id, name, params)
}

// CallNotification invokes the method named name as a notification, with
// the given positional parameters. It does not wait for, or expect, a
// response.
func (c *Client) CallNotification(name string, params ...interface{}) error {
	return c.notify(name, positionalParams(params))
}

// CallNotificationNamed invokes the method named name as a notification,
// with the given named parameters. It does not wait for, or expect, a
// response.
func (c *Client) CallNotificationNamed(name string, params map[string]interface{}) error {
	return c.notify(name, params)
}

// positionalParams normalizes a variadic parameter list so that an empty
// call produces a nil (and hence omitted/null) params value rather than an
// empty-but-present JSON array.
func positionalParams(params []interface{}) interface{} {
	if len(params) == 0 {
		return nil
	}
	return params
}

func (c *Client) call(id interface{}, name string, params interface{}) (CallResult, error) {
	idValue, err := encodeID(id)
	if err != nil {
		return CallResult{}, fmt.Errorf("invalid JSON-RPC request ID: %w", err)
	}

	body, err := c.composeRequest(idValue, name, params, true)
	if err != nil {
		return CallResult{}, fmt.Errorf("unable to compose JSON-RPC request: %w", err)
	}

	respBody, err := c.Connector.Send(body)
	if err != nil {
		return CallResult{}, err
	}

	return parseCallResponse(respBody)
}

func (c *Client) notify(name string, params interface{}) error {
	body, err := c.composeRequest(ID{}, name, params, false)
	if err != nil {
		return fmt.Errorf("unable to compose JSON-RPC notification: %w", err)
	}

	_, err = c.Connector.Send(body)
	return err
}

// composeRequest builds the wire bytes for a single request, following the
// field table that differs between the V1 and V2 dialects.
func (c *Client) composeRequest(id ID, method string, params interface{}, isCall bool) ([]byte, error) {
	encodedParams, err := encodeParams(params)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal request parameters: %w", err)
	}

	if c.Version == V1 {
		req := v1Request{
			Method:     method,
			Parameters: encodedParams,
		}

		if isCall {
			idBytes, err := json.Marshal(id)
			if err != nil {
				return nil, fmt.Errorf("unable to marshal request ID: %w", err)
			}
			req.ID = idBytes
		} else {
			req.ID = RawMessage("null")
		}

		if len(req.Parameters) == 0 {
			req.Parameters = RawMessage("null")
		}

		return json.Marshal(req)
	}

	if isCall {
		idBytes, err := json.Marshal(id)
		if err != nil {
			return nil, fmt.Errorf("unable to marshal request ID: %w", err)
		}
		req := Request{
			Version:    jsonRPCVersion,
			ID:         idBytes,
			Method:     method,
			Parameters: encodedParams,
		}
		return json.Marshal(req)
	}

	req := Request{
		Version:    jsonRPCVersion,
		Method:     method,
		Parameters: encodedParams,
	}
	return json.Marshal(req)
}

// v1Request is the JSON-RPC 1.0 request envelope: no "jsonrpc" field, and
// both "id" and "params" are always present.
type v1Request struct {
	ID         RawMessage `json:"id"`
	Method     string     `json:"method"`
	Parameters RawMessage `json:"params"`
}

// encodeParams marshals params into its wire representation. A nil or
// empty params value produces an empty RawMessage, signaling that the field
// should be omitted (V2) or sent as null (V1).
func encodeParams(params interface{}) (RawMessage, error) {
	if params == nil {
		return nil, nil
	}

	switch v := params.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil, nil
		}
	case map[string]interface{}:
		if len(v) == 0 {
			return nil, nil
		}
	}

	return json.Marshal(params)
}

// encodeID converts a Go value representing a client-generated request ID
// (an ID, a string, an int, int32, int64, uint, uint32, uint64 or float64)
// into an ID. Any other type is rejected.
func encodeID(id interface{}) (ID, error) {
	switch v := id.(type) {
	case ID:
		return v, nil
	case string:
		return NewStringID(v), nil
	case int:
		return NewNumberID(float64(v)), nil
	case int32:
		return NewNumberID(float64(v)), nil
	case int64:
		return NewNumberID(float64(v)), nil
	case uint:
		return NewNumberID(float64(v)), nil
	case uint32:
		return NewNumberID(float64(v)), nil
	case uint64:
		return NewNumberID(float64(v)), nil
	case float64:
		return NewNumberID(v), nil
	default:
		return ID{}, fmt.Errorf("request ID must be an integer or a string, got %T", id)
	}
}

// rawClientResponse is the wire shape of a method-call response, sniffed to
// determine whether it represents a success or an error.
type rawClientResponse struct {
	ID     RawMessage          `json:"id"`
	Result RawMessage          `json:"result"`
	Error  *rawClientErrorInfo `json:"error"`
}

// rawClientErrorInfo is the wire shape of the "error" field of a response,
// with Code and Message as pointers so that their absence can be detected
// (an error object missing either is itself malformed).
type rawClientErrorInfo struct {
	Code    *ErrorCode `json:"code"`
	Message *string    `json:"message"`
	Data    RawMessage `json:"data"`
}

// parseCallResponse parses and validates the server's response to a single
// (non-batched) method call, per the client response-parsing rules.
func parseCallResponse(body []byte) (CallResult, error) {
	var res rawClientResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return CallResult{}, NewClientSideError(
			ParseErrorCode,
			fmt.Sprintf("invalid JSON response from server: %s", err),
			nil,
		)
	}

	if res.Error != nil {
		if res.Error.Code == nil || res.Error.Message == nil {
			return CallResult{}, NewClientSideError(
				InternalErrorCode,
				`invalid error response: "code" (negative number) and "message" (string) are required`,
				nil,
			)
		}

		var data interface{}
		if len(res.Error.Data) > 0 {
			data = res.Error.Data
		}

		return CallResult{}, NewClientSideError(*res.Error.Code, *res.Error.Message, data)
	}

	if len(res.Result) > 0 && len(res.ID) > 0 {
		var id ID
		if err := json.Unmarshal(res.ID, &id); err != nil {
			return CallResult{}, NewClientSideError(
				InternalErrorCode,
				fmt.Sprintf("invalid id in server response: %s", err),
				nil,
			)
		}

		return CallResult{ID: id, Result: res.Result}, nil
	}

	return CallResult{}, NewClientSideError(
		InternalErrorCode,
		`invalid server response: neither "result" nor "error" fields found`,
		nil,
	)
}
