package jsonrpc2

import "fmt"

// BatchRequest accumulates JSON-RPC 2.0 method calls and notifications to be
// sent to a server in a single batch.
//
// Unlike a single CallMethod/CallNotification, batch elements always carry a
// "params" field (an empty array or object when no parameters were given)
// rather than omitting it.
type BatchRequest struct {
	elements []batchElement
}

// NewBatchRequest returns a new, empty batch request.
func NewBatchRequest() *BatchRequest {
	return &BatchRequest{}
}

// batchElement is the wire shape of a single request within a batch.
type batchElement struct {
	Version    string     `json:"jsonrpc"`
	ID         RawMessage `json:"id,omitempty"`
	Method     string     `json:"method"`
	Parameters RawMessage `json:"params"`
}

// AddMethodCall adds a method call with positional parameters to the batch.
func (b *BatchRequest) AddMethodCall(id interface{}, name string, params ...interface{}) *BatchRequest {
	b.add(id, name, batchPositional(params), true)
	return b
}

// AddNamedMethodCall adds a method call with named parameters to the batch.
func (b *BatchRequest) AddNamedMethodCall(id interface{}, name string, params map[string]interface{}) *BatchRequest {
	b.add(id, name, batchNamed(params), true)
	return b
}

// AddNotificationCall adds a notification with positional parameters to the
// batch.
func (b *BatchRequest) AddNotificationCall(name string, params ...interface{}) *BatchRequest {
	b.add(nil, name, batchPositional(params), false)
	return b
}

// AddNamedNotificationCall adds a notification with named parameters to the
// batch.
func (b *BatchRequest) AddNamedNotificationCall(name string, params map[string]interface{}) *BatchRequest {
	b.add(nil, name, batchNamed(params), false)
	return b
}

func batchPositional(params []interface{}) []interface{} {
	if params == nil {
		return []interface{}{}
	}
	return params
}

func batchNamed(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return map[string]interface{}{}
	}
	return params
}

func (b *BatchRequest) add(id interface{}, method string, params interface{}, isCall bool) {
	el := batchElement{
		Version: jsonRPCVersion,
		Method:  method,
	}

	if isCall {
		idValue, err := encodeID(id)
		if err != nil {
			panic(fmt.Sprintf("unable to add batch call (%s): %s", method, err))
		}

		idBytes, err := json.Marshal(idValue)
		if err != nil {
			panic(fmt.Sprintf("unable to add batch call (%s): unable to marshal request ID: %s", method, err))
		}
		el.ID = idBytes
	}

	paramBytes, err := json.Marshal(params)
	if err != nil {
		panic(fmt.Sprintf("unable to add batch call (%s): unable to marshal request parameters: %s", method, err))
	}
	el.Parameters = paramBytes

	b.elements = append(b.elements, el)
}

// Build returns the JSON-encoded batch request. It returns nil if the batch
// is empty; an empty batch is never sent.
func (b *BatchRequest) Build() []byte {
	if len(b.elements) == 0 {
		return nil
	}

	data, err := json.Marshal(b.elements)
	if err != nil {
		// CODE COVERAGE: every element was already successfully marshaled
		// individually in add(), so re-marshaling the slice cannot fail.
		panic(fmt.Sprintf("unable to marshal batch request: %s", err))
	}

	return data
}

// BatchCall sends req and parses the server's response, correlating each
// response entry with the request that produced it by id.
func (c *Client) BatchCall(req *BatchRequest) (*BatchResponse, error) {
	body := req.Build()
	if body == nil {
		return &BatchResponse{}, nil
	}

	respBody, err := c.Connector.Send(body)
	if err != nil {
		return nil, err
	}

	return parseBatchResponse(respBody)
}

// BatchResponse indexes the entries of a JSON-RPC batch response by id, so
// that individual results or errors can be retrieved with BatchGet.
type BatchResponse struct {
	results        map[string]RawMessage
	errors         map[string]Error
	invalidIndexes []int
	raw            []RawMessage
}

// batchResponseEntry is the wire shape of one entry within a batch response,
// used to sniff whether it is well-formed and, if so, what kind it is.
type batchResponseEntry struct {
	ID     *RawMessage         `json:"id"`
	Result RawMessage          `json:"result"`
	Error  *rawClientErrorInfo `json:"error"`
}

func parseBatchResponse(body []byte) (*BatchResponse, error) {
	var raw []RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, NewClientSideError(
			ParseErrorCode,
			fmt.Sprintf("invalid JSON response from server: expected array: %s", err),
			nil,
		)
	}

	res := &BatchResponse{
		results: map[string]RawMessage{},
		errors:  map[string]Error{},
		raw:     raw,
	}

	for i, element := range raw {
		if jsonKind(element) != jsonKindObject {
			res.invalidIndexes = append(res.invalidIndexes, i)
			continue
		}

		var entry batchResponseEntry
		if err := json.Unmarshal(element, &entry); err != nil {
			res.invalidIndexes = append(res.invalidIndexes, i)
			continue
		}

		if entry.ID == nil || jsonKind(*entry.ID) == jsonKindNull {
			res.invalidIndexes = append(res.invalidIndexes, i)
			continue
		}

		var id ID
		if err := json.Unmarshal(*entry.ID, &id); err != nil {
			res.invalidIndexes = append(res.invalidIndexes, i)
			continue
		}

		key := idKey(id)

		if entry.Error != nil {
			if entry.Error.Code == nil || entry.Error.Message == nil {
				res.invalidIndexes = append(res.invalidIndexes, i)
				continue
			}

			var data interface{}
			if len(entry.Error.Data) > 0 {
				data = entry.Error.Data
			}

			res.errors[key] = NewClientSideError(*entry.Error.Code, *entry.Error.Message, data)
			continue
		}

		if len(entry.Result) == 0 {
			res.invalidIndexes = append(res.invalidIndexes, i)
			continue
		}

		res.results[key] = entry.Result
	}

	return res, nil
}

// HasErrors returns true if at least one entry in the batch response was an
// error.
func (b *BatchResponse) HasErrors() bool {
	return len(b.errors) > 0
}

// GetInvalidIndexes returns the indexes, in response array order, of entries
// that were not well-formed responses: an entry that does not decode as a
// response object, has no recoverable (non-null) id, carries an error object
// without both a code and a message, or carries neither an error nor a result.
func (b *BatchResponse) GetInvalidIndexes() []int {
	out := make([]int, len(b.invalidIndexes))
	copy(out, b.invalidIndexes)
	return out
}

// GetAt returns the raw JSON value of the response array element at index,
// or nil if index is out of range.
func (b *BatchResponse) GetAt(index int) RawMessage {
	if index < 0 || index >= len(b.raw) {
		return nil
	}
	return b.raw[index]
}

// BatchGet retrieves the result associated with id from a batch response,
// decoded into T.
//
// It is a package-level function, rather than a method of BatchResponse,
// because Go does not permit a method to introduce its own type parameters.
//
// If id maps to an error entry, the error is returned. If id is not present
// at all, a "no result found" error is returned.
func BatchGet[T any](b *BatchResponse, id interface{}) (T, error) {
	var zero T

	key, dump := batchIDKey(id)

	if raw, ok := b.results[key]; ok {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, fmt.Errorf("unable to unmarshal result for id %s: %w", dump, err)
		}
		return v, nil
	}

	if e, ok := b.errors[key]; ok {
		return zero, e
	}

	return zero, NewClientSideError(
		ParseErrorCode,
		fmt.Sprintf("no result found for id %s", dump),
		nil,
	)
}

// batchIDKey computes the canonical lookup key for a user-supplied id value,
// along with a human-readable rendering for use in error messages.
func batchIDKey(id interface{}) (key, dump string) {
	if id == nil {
		return "null", "null"
	}

	idValue, err := encodeID(id)
	if err != nil {
		return fmt.Sprintf("%v", id), fmt.Sprintf("%v", id)
	}

	data, _ := json.Marshal(idValue)
	return idKey(idValue), string(data)
}

// idKey returns a string that uniquely identifies id such that JSON equality
// is preserved: a number id and a string id with the same textual form
// produce different keys.
func idKey(id ID) string {
	switch id.kind {
	case idKindString:
		return "s:" + id.str
	case idKindNumber:
		return fmt.Sprintf("n:%v", id.num)
	default:
		return "null"
	}
}
