package jsonrpc2

import (
	"bytes"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// strictJSON is a codec configuration that rejects unknown object fields,
// used when decoding the JSON-RPC envelope itself (the wire grammar is
// closed: an object with unrecognized members is not a valid Request or
// Response).
var strictJSON = jsoniter.Config{
	EscapeHTML:            false,
	DisallowUnknownFields: true,
}.Froze()

// isJSONError returns true if err indicates that some JSON content could not
// be parsed or decoded, as opposed to an application-level failure.
func isJSONError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "json:"):
		return true
	case strings.Contains(msg, "invalid character"):
		return true
	case strings.Contains(msg, "unexpected end of JSON input"):
		return true
	case strings.Contains(msg, "cannot unmarshal"):
		return true
	case strings.Contains(msg, "ReadString"):
		return true
	case strings.Contains(msg, "unmarshalerDecoder"):
		return true
	default:
		return false
	}
}

// unmarshalStrict decodes JSON content from r into v, rejecting unknown
// object fields.
func unmarshalStrict(r io.Reader, v interface{}) error {
	dec := strictJSON.NewDecoder(r)
	return dec.Decode(v)
}

// jsonKindName classifies a raw JSON value's textual kind, for use in the
// type binder's diagnostic messages ("must be integer, but is string", and
// so on).
type jsonKindName string

const (
	jsonKindNull            jsonKindName = "null"
	jsonKindBoolean         jsonKindName = "boolean"
	jsonKindString          jsonKindName = "string"
	jsonKindObject          jsonKindName = "object"
	jsonKindArray           jsonKindName = "array"
	jsonKindInteger         jsonKindName = "integer"
	jsonKindUnsignedInteger jsonKindName = "unsigned integer"
	jsonKindFloat           jsonKindName = "float"
	jsonKindUnknown         jsonKindName = "value"
)

// jsonKind inspects the first significant byte (and, for numbers, the whole
// literal) of raw to classify its JSON type.
func jsonKind(raw []byte) jsonKindName {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return jsonKindUnknown
	}

	switch trimmed[0] {
	case '"':
		return jsonKindString
	case 't', 'f':
		return jsonKindBoolean
	case 'n':
		return jsonKindNull
	case '{':
		return jsonKindObject
	case '[':
		return jsonKindArray
	}

	if trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9') {
		if bytes.ContainsAny(trimmed, ".eE") {
			return jsonKindFloat
		}
		if trimmed[0] == '-' {
			return jsonKindInteger
		}
		return jsonKindUnsignedInteger
	}

	return jsonKindUnknown
}
