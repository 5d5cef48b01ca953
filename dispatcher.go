package jsonrpc2

import (
	"sort"
	"strconv"
	"sync"
)

// Dispatcher is a registry of methods and notifications, keyed by name.
//
// A Dispatcher is the union of C2 (the type binder, which produces
// MethodHandle and NotificationHandle values) and C3 (named/positional
// parameter normalization and error decoration), grounded on the original's
// Dispatcher class. It is safe for concurrent use.
type Dispatcher struct {
	mu            sync.RWMutex
	methods       map[string]MethodHandle
	notifications map[string]NotificationHandle
	paramNames    map[string][]string
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		methods:       map[string]MethodHandle{},
		notifications: map[string]NotificationHandle{},
		paramNames:    map[string][]string{},
	}
}

// AddMethod registers a method under name. paramNames, if non-empty, gives
// the names of fn's positional parameters in order, enabling callers to
// invoke the method using the named-parameters form of the JSON-RPC request
// object. AddMethod returns false without modifying the Dispatcher if name
// is already registered as a method or a notification.
func (d *Dispatcher) AddMethod(name string, handle MethodHandle, paramNames ...string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.containsLocked(name) {
		return false
	}

	d.methods[name] = handle
	if len(paramNames) > 0 {
		d.paramNames[name] = paramNames
	}
	return true
}

// AddNotification registers a notification under name, analogous to
// AddMethod.
func (d *Dispatcher) AddNotification(name string, handle NotificationHandle, paramNames ...string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.containsLocked(name) {
		return false
	}

	d.notifications[name] = handle
	if len(paramNames) > 0 {
		d.paramNames[name] = paramNames
	}
	return true
}

// Remove unregisters name, whether it is a method or a notification. It
// returns false if name was not registered.
func (d *Dispatcher) Remove(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.containsLocked(name) {
		return false
	}

	delete(d.methods, name)
	delete(d.notifications, name)
	delete(d.paramNames, name)
	return true
}

// ContainsMethod returns true if name is registered as a method.
func (d *Dispatcher) ContainsMethod(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.methods[name]
	return ok
}

// ContainsNotification returns true if name is registered as a
// notification.
func (d *Dispatcher) ContainsNotification(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.notifications[name]
	return ok
}

// Contains returns true if name is registered as either a method or a
// notification.
func (d *Dispatcher) Contains(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.containsLocked(name)
}

func (d *Dispatcher) containsLocked(name string) bool {
	if _, ok := d.methods[name]; ok {
		return true
	}
	_, ok := d.notifications[name]
	return ok
}

// MethodNames returns the names of all registered methods, sorted
// lexicographically.
func (d *Dispatcher) MethodNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NotificationNames returns the names of all registered notifications,
// sorted lexicographically.
func (d *Dispatcher) NotificationNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.notifications))
	for name := range d.notifications {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InvokeMethod dispatches a method call by name, normalizing params (which
// may be a JSON array, a JSON object of named parameters, absent, or
// explicit null) into the positional form the bound handle expects, and
// decorating any resulting invalid-parameters error with the offending
// parameter's name or index.
func (d *Dispatcher) InvokeMethod(name string, params RawMessage) (RawMessage, error) {
	d.mu.RLock()
	handle, ok := d.methods[name]
	names := d.paramNames[name]
	d.mu.RUnlock()

	if !ok {
		return nil, MethodNotFound(WithMessage("method not found: %s", name))
	}

	positional, err := normalizeParams(name, params, names)
	if err != nil {
		return nil, err
	}

	result, err := handle(positional)
	if err != nil {
		return nil, decorateParamError(err, names)
	}
	return result, nil
}

// InvokeNotification dispatches a notification call by name, analogous to
// InvokeMethod.
func (d *Dispatcher) InvokeNotification(name string, params RawMessage) error {
	d.mu.RLock()
	handle, ok := d.notifications[name]
	names := d.paramNames[name]
	d.mu.RUnlock()

	if !ok {
		return MethodNotFound(WithMessage("notification not found: %s", name))
	}

	positional, err := normalizeParams(name, params, names)
	if err != nil {
		return err
	}

	if err := handle(positional); err != nil {
		return decorateParamError(err, names)
	}
	return nil
}

// normalizeParams converts the params member of a request object into the
// positional array the bound handle's arity check expects.
//
// A JSON array passes through unchanged. A JSON object is mapped to
// positional order using names, which must have been supplied at
// registration time; an object is rejected if the procedure has no such
// mapping, or if it is missing any of the named parameters. Absent params
// (an empty RawMessage) and explicit JSON null both normalize to zero
// arguments.
func normalizeParams(name string, params RawMessage, names []string) ([]RawMessage, error) {
	if len(params) == 0 {
		return nil, nil
	}

	switch jsonKind(params) {
	case jsonKindNull:
		return nil, nil

	case jsonKindArray:
		var positional []RawMessage
		if err := json.Unmarshal(params, &positional); err != nil {
			return nil, InvalidRequest(WithMessage("invalid request: %s", err.Error()))
		}
		return positional, nil

	case jsonKindObject:
		if len(names) == 0 {
			return nil, InvalidParameters(WithMessage("invalid parameter: procedure doesn't support named parameter"))
		}

		var byName map[string]RawMessage
		if err := json.Unmarshal(params, &byName); err != nil {
			return nil, InvalidRequest(WithMessage("invalid request: %s", err.Error()))
		}

		positional := make([]RawMessage, len(names))
		for i, n := range names {
			v, ok := byName[n]
			if !ok {
				return nil, InvalidParameters(WithMessage("invalid parameter: missing named parameter %q", n))
			}
			positional[i] = v
		}
		return positional, nil

	default:
		return nil, InvalidRequest(WithMessage("invalid request: params field must be an array, object"))
	}
}

// decorateParamError rewrites an invalid-parameters error raised by the type
// binder to name the offending parameter, consuming its positional index in
// the process. Errors without an attached index, or with any other code,
// pass through unchanged.
func decorateParamError(err error, names []string) error {
	je, ok := err.(Error)
	if !ok || je.Code() != InvalidParametersCode || je.paramIndex == nil {
		return err
	}

	index := int(*je.paramIndex)

	var suffix string
	if index >= 0 && index < len(names) {
		suffix = " for parameter \"" + names[index] + "\""
	} else {
		suffix = " for parameter " + strconv.Itoa(index)
	}

	je.message = je.message + suffix
	je.paramIndex = nil
	return je
}
