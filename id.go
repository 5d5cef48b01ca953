package jsonrpc2

import (
	jsoniter "github.com/json-iterator/go"
)

// json is the codec used throughout the package for marshaling and
// unmarshaling JSON-RPC wire values. jsoniter's compatible configuration
// keeps the exact semantics of encoding/json (field tags, RawMessage,
// Marshaler/Unmarshaler hooks) while giving request-heavy dispatch code a
// faster decode path, grounded on go-language-server-jsonrpc2's use of the
// same library as its wire codec.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ID is a JSON-RPC request identifier.
//
// As per the JSON-RPC specification, an ID is a JSON string, a JSON number
// (conventionally without a fractional part), or JSON null. Per spec, a
// client-generated ID must be a number or a string; a null ID is only valid
// within a response when the request's ID could not be recovered (see
// Response construction in server.go).
//
// ID deliberately is not a Go interface{} holding a string/float64/nil: the
// "design note" on id-as-sum-type calls for a tagged variant whose equality
// mirrors JSON equality, where the integer 1 and the string "1" are distinct
// identifiers even though Go's untyped JSON decoding would otherwise collapse
// both into float64/string values that compare awkwardly.
type ID struct {
	kind idKind
	str  string
	num  float64
}

type idKind int

const (
	idKindNull idKind = iota
	idKindString
	idKindNumber
)

// NullID is the JSON-RPC null identifier.
var NullID = ID{kind: idKindNull}

// NewStringID returns an ID whose wire representation is the JSON string s.
func NewStringID(s string) ID {
	return ID{kind: idKindString, str: s}
}

// NewNumberID returns an ID whose wire representation is the JSON number n.
func NewNumberID(n float64) ID {
	return ID{kind: idKindNumber, num: n}
}

// IsNull returns true if id is the JSON null identifier.
func (id ID) IsNull() bool {
	return id.kind == idKindNull
}

// String returns id's string value and true, if id is a JSON string.
func (id ID) String() (string, bool) {
	if id.kind != idKindString {
		return "", false
	}
	return id.str, true
}

// Number returns id's numeric value and true, if id is a JSON number.
func (id ID) Number() (float64, bool) {
	if id.kind != idKindNumber {
		return 0, false
	}
	return id.num, true
}

// Equal returns true if id and other identify the same request.
//
// Equality mirrors JSON equality: a number ID and a string ID are never
// equal even if their textual forms coincide (1 != "1").
func (id ID) Equal(other ID) bool {
	if id.kind != other.kind {
		return false
	}

	switch id.kind {
	case idKindString:
		return id.str == other.str
	case idKindNumber:
		return id.num == other.num
	default:
		return true
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idKindString:
		return json.Marshal(id.str)
	case idKindNumber:
		return json.Marshal(id.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch t := v.(type) {
	case nil:
		*id = ID{kind: idKindNull}
	case string:
		*id = ID{kind: idKindString, str: t}
	case float64:
		*id = ID{kind: idKindNumber, num: t}
	default:
		return errUnsupportedIDType
	}

	return nil
}

var errUnsupportedIDType = idTypeError{}

// idTypeError is returned by ID.UnmarshalJSON when the JSON value is not a
// string, number, or null.
type idTypeError struct{}

func (idTypeError) Error() string {
	return "request ID must be a JSON string, number or null"
}
