package jsonrpc2

import (
	"reflect"
)

// MethodHandle is the uniform shape produced by the type binder for a native
// procedure that is registered as a JSON-RPC method: it accepts the
// positional parameter array (already normalized by the Dispatcher) and
// returns the JSON-encoded result, or an Error.
type MethodHandle func(params []RawMessage) (RawMessage, error)

// NotificationHandle is the uniform shape produced by the type binder for a
// native procedure registered as a JSON-RPC notification. It never returns a
// result; any error it returns is swallowed at the server protocol boundary
// (spec §7).
type NotificationHandle func(params []RawMessage) error

// RawMessage holds an undecoded JSON value, analogous to encoding/json's
// RawMessage: marshaling it copies its bytes verbatim, and unmarshaling into
// it stores the matched value's bytes verbatim, without interpreting them.
// It is defined locally, rather than as an alias for encoding/json.RawMessage,
// so that request.go and response.go can use a plain []byte-shaped field
// without colliding with this package's own "json" codec variable.
type RawMessage []byte

// MarshalJSON implements json.Marshaler.
func (m RawMessage) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return m, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *RawMessage) UnmarshalJSON(data []byte) error {
	if m == nil {
		return errNilRawMessage
	}
	*m = append((*m)[0:0], data...)
	return nil
}

var errNilRawMessage = rawMessageError{}

type rawMessageError struct{}

func (rawMessageError) Error() string { return "jsonrpc2.RawMessage: UnmarshalJSON on nil pointer" }

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Bind adapts a native Go function into a MethodHandle.
//
// fn must be a function accepting N parameters of any type the codec can
// decode (builtin leaf types get precise per-parameter checking; everything
// else is decoded generically) and returning either a single result value, a
// single error, or a (result, error) pair. Bind captures fn's arity and
// parameter types at construction time, mirroring the C++ original's
// template-specialized GetHandle(); a Go function has no variadic-template
// equivalent, so this is done with reflection once, up front, rather than on
// every invocation.
//
// Bind panics if fn is not a function, or has a return shape other than
// those described above — these are programming errors, discovered at
// registration time, not at request time.
func Bind(fn interface{}) MethodHandle {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic("jsonrpc2: Bind requires a function")
	}

	paramTypes := make([]reflect.Type, t.NumIn())
	for i := range paramTypes {
		paramTypes[i] = t.In(i)
	}

	hasResult, hasError := resultShape(t)

	return func(params []RawMessage) (RawMessage, error) {
		args, err := bindArguments(paramTypes, params)
		if err != nil {
			return nil, err
		}

		out := v.Call(args)

		if hasError {
			if errv := out[len(out)-1]; !errv.IsNil() {
				return nil, wrapNativeError(errv.Interface().(error))
			}
		}

		if !hasResult {
			return nil, nil
		}

		data, err := json.Marshal(out[0].Interface())
		if err != nil {
			return nil, InternalError(WithCause(err))
		}
		return data, nil
	}
}

// BindNotification adapts a native Go function into a NotificationHandle.
//
// fn must accept the same parameter shapes as Bind, but must return nothing
// or a single error; any result value it might otherwise produce would never
// be observed by a caller (spec's Notification has no response).
func BindNotification(fn interface{}) NotificationHandle {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic("jsonrpc2: BindNotification requires a function")
	}

	paramTypes := make([]reflect.Type, t.NumIn())
	for i := range paramTypes {
		paramTypes[i] = t.In(i)
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) != errorType {
			panic("jsonrpc2: notification functions may only return an error")
		}
	default:
		panic("jsonrpc2: notification functions may only return an error")
	}

	hasError := t.NumOut() == 1

	return func(params []RawMessage) error {
		args, err := bindArguments(paramTypes, params)
		if err != nil {
			return err
		}

		out := v.Call(args)

		if hasError {
			if errv := out[0]; !errv.IsNil() {
				return wrapNativeError(errv.Interface().(error))
			}
		}

		return nil
	}
}

// resultShape inspects a method function's return values and determines
// whether it produces a result value, an error, or both.
func resultShape(t reflect.Type) (hasResult, hasError bool) {
	switch t.NumOut() {
	case 0:
		panic("jsonrpc2: method functions must return a result, an error, or both")
	case 1:
		if t.Out(0) == errorType {
			return false, true
		}
		return true, false
	case 2:
		if t.Out(1) != errorType {
			panic("jsonrpc2: the second return value of a method function must be an error")
		}
		return true, true
	default:
		panic("jsonrpc2: method functions may return at most a result and an error")
	}
}

// wrapNativeError converts an error returned by a native procedure into a
// structured Error, passing structured errors through unchanged (spec §7,
// "native callable failures propagate").
func wrapNativeError(err error) error {
	if je, ok := err.(Error); ok {
		return je
	}
	return InternalError(WithCause(err))
}

// bindArguments implements the binder's per-invocation contract (spec §4.2):
// arity check, then per-parameter extraction with type and range checking.
func bindArguments(paramTypes []reflect.Type, params []RawMessage) ([]reflect.Value, error) {
	n := len(paramTypes)
	if len(params) != n {
		return nil, InvalidParameters(WithMessage(
			"expected %d argument(s), but found %d", n, len(params),
		))
	}

	args := make([]reflect.Value, n)
	for i, t := range paramTypes {
		v, err := decodeParam(i, t, params[i])
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return args, nil
}

// decodeParam extracts the i'th positional parameter into the Go type t,
// performing the type and range checks of spec §4.2's type mapping table for
// built-in leaf types, and falling back to the codec's generic extraction
// (with generic, non-indexed error wrapping) for everything else.
func decodeParam(i int, t reflect.Type, raw RawMessage) (reflect.Value, error) {
	kind := jsonKind(raw)

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if kind != jsonKindInteger && kind != jsonKindUnsignedInteger {
			return reflect.Value{}, invalidParamError(i, "must be integer, but is %s", kind)
		}
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return reflect.Value{}, invalidParamError(i, "exceeds value range of integer")
		}
		rv := reflect.New(t).Elem()
		if rv.OverflowInt(n) {
			return reflect.Value{}, invalidParamError(i, "exceeds value range of integer")
		}
		rv.SetInt(n)
		return rv, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if kind != jsonKindUnsignedInteger {
			return reflect.Value{}, invalidParamError(i, "must be unsigned integer, but is %s", kind)
		}
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return reflect.Value{}, invalidParamError(i, "exceeds value range of integer")
		}
		rv := reflect.New(t).Elem()
		if rv.OverflowUint(n) {
			return reflect.Value{}, invalidParamError(i, "exceeds value range of integer")
		}
		rv.SetUint(n)
		return rv, nil

	case reflect.Float32, reflect.Float64:
		if kind != jsonKindInteger && kind != jsonKindUnsignedInteger && kind != jsonKindFloat {
			return reflect.Value{}, invalidParamError(i, "must be number, but is %s", kind)
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return reflect.Value{}, invalidParamError(i, "must be number, but is %s", kind)
		}
		rv := reflect.New(t).Elem()
		rv.SetFloat(f)
		return rv, nil

	case reflect.Bool:
		if kind != jsonKindBoolean {
			return reflect.Value{}, invalidParamError(i, "must be boolean, but is %s", kind)
		}
		var b bool
		_ = json.Unmarshal(raw, &b)
		return reflect.ValueOf(b), nil

	case reflect.String:
		if kind != jsonKindString {
			return reflect.Value{}, invalidParamError(i, "must be string, but is %s", kind)
		}
		var s string
		_ = json.Unmarshal(raw, &s)
		return reflect.ValueOf(s), nil

	default:
		// Sequence/object types and anything else: defer to the codec's
		// own extraction. Failures here have no specific parameter index
		// attached — nlohmann's json::type_error carries none either — so
		// they are not eligible for the Dispatcher's "for parameter ..."
		// decoration.
		ptr := reflect.New(t)
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return reflect.Value{}, InvalidParameters(
				WithMessage("invalid parameter: %s", err.Error()),
			)
		}
		return ptr.Elem(), nil
	}
}

// invalidParamError builds the InvalidParametersCode error for a single
// positional parameter, attaching its index for later decoration by the
// Dispatcher (spec §4.3, "error decoration").
func invalidParamError(index int, format string, values ...interface{}) error {
	return invalidParametersAtIndex(index, "invalid parameter: "+format, values...)
}
