package jsonrpc2

import (
	"bytes"
	"context"
	"errors"
	"strings"
)

// reservedMethodPrefix is the method name prefix reserved for system
// extensions by the JSON-RPC specification. Names beginning with it are
// refused at registration time (grounded on the original's
// JsonRpcServer::Add, which performs the same check before ever reaching the
// Dispatcher).
const reservedMethodPrefix = "rpc."

// Server is a JSON-RPC 2.0 server: a Dispatcher (the C2/C3 type-binding and
// invocation machinery) plus the registration-time guard against
// system-reserved method names, and the request/response protocol that
// turns a parsed Request into a Response.
//
// A *Server implements Exchanger, and so can be driven directly by Exchange
// for streaming/batch transports, or used through HandleRequest for a single
// self-contained request/response exchange.
type Server struct {
	dispatcher *Dispatcher
}

// NewServer returns an empty Server.
func NewServer() *Server {
	return &Server{dispatcher: NewDispatcher()}
}

// AddMethod binds fn (see Bind) and registers it under name. It returns
// false, without modifying the Server, if name begins with "rpc." or is
// already registered.
func (s *Server) AddMethod(name string, fn interface{}, paramNames ...string) bool {
	if isReservedMethodName(name) {
		return false
	}
	return s.dispatcher.AddMethod(name, Bind(fn), paramNames...)
}

// AddNotification binds fn (see BindNotification) and registers it under
// name, analogous to AddMethod.
func (s *Server) AddNotification(name string, fn interface{}, paramNames ...string) bool {
	if isReservedMethodName(name) {
		return false
	}
	return s.dispatcher.AddNotification(name, BindNotification(fn), paramNames...)
}

// Remove unregisters name. It returns false if name was not registered.
func (s *Server) Remove(name string) bool {
	return s.dispatcher.Remove(name)
}

// ContainsMethod returns true if name is registered as a method.
func (s *Server) ContainsMethod(name string) bool { return s.dispatcher.ContainsMethod(name) }

// ContainsNotification returns true if name is registered as a
// notification.
func (s *Server) ContainsNotification(name string) bool {
	return s.dispatcher.ContainsNotification(name)
}

// Contains returns true if name is registered as either a method or a
// notification.
func (s *Server) Contains(name string) bool { return s.dispatcher.Contains(name) }

// MethodNames returns the names of all registered methods.
func (s *Server) MethodNames() []string { return s.dispatcher.MethodNames() }

// NotificationNames returns the names of all registered notifications.
func (s *Server) NotificationNames() []string { return s.dispatcher.NotificationNames() }

func isReservedMethodName(name string) bool {
	return strings.HasPrefix(name, reservedMethodPrefix)
}

// Call implements Exchanger by dispatching req to its registered method and
// building the corresponding Response.
func (s *Server) Call(_ context.Context, req Request) Response {
	result, err := s.dispatcher.InvokeMethod(req.Method, req.Parameters)
	if err != nil {
		return NewErrorResponse(req.ID, err)
	}

	if len(result) == 0 {
		// A method with no declared result value (Bind with only an error
		// return) still produces a success response; the JSON-RPC
		// specification requires the "result" member to be present.
		result = RawMessage("null")
	}

	return SuccessResponse{
		Version:   jsonRPCVersion,
		RequestID: req.ID,
		Result:    result,
	}
}

// Notify implements Exchanger by dispatching req to its registered
// notification. Any error is discarded: notifications never produce a
// response, per the JSON-RPC specification.
func (s *Server) Notify(_ context.Context, req Request) {
	_ = s.dispatcher.InvokeNotification(req.Method, req.Parameters)
}

// HandleRequest processes a single JSON-RPC message — a single request, a
// batch, or malformed input — and returns the raw JSON response to send
// back, or nil if no response is required (the message was entirely
// notifications, or a notification on its own).
//
// This is a non-streaming convenience wrapper around the Dispatcher for
// transports that exchange one full message at a time; Exchange provides
// the same semantics with concurrent batch fan-out for streaming
// transports.
func (s *Server) HandleRequest(ctx context.Context, message []byte) []byte {
	rs, err := ParseRequestSet(bytes.NewReader(message))
	if err != nil {
		var je Error
		if errors.As(err, &je) {
			return mustMarshalResponse(NewErrorResponse(nil, je))
		}
		return mustMarshalResponse(NewErrorResponse(nil, InternalError(WithCause(err))))
	}

	if verr, ok := rs.ValidateServerSide(); !ok {
		return mustMarshalResponse(newNativeErrorResponse(nil, verr))
	}

	if rs.IsBatch {
		return s.handleBatch(ctx, rs.Requests)
	}

	return s.handleSingle(ctx, rs.Requests[0])
}

// handleSingle validates and dispatches a single request, which may be
// malformed on its own (grammarErr set by batch parsing, or a grammar
// violation caught by ValidateServerSide).
func (s *Server) handleSingle(ctx context.Context, req Request) []byte {
	if verr, ok := req.ValidateServerSide(); !ok {
		return mustMarshalResponse(newNativeErrorResponse(recoverRequestID(req.ID), verr))
	}

	if req.IsNotification() {
		s.Notify(ctx, req)
		return nil
	}

	return mustMarshalResponse(s.Call(ctx, req))
}

// handleBatch validates and dispatches each element of a batch
// independently: one element's grammar violation produces its own
// {id:null,error:...} entry rather than aborting the batch.
func (s *Server) handleBatch(ctx context.Context, requests []Request) []byte {
	responses := make([]Response, 0, len(requests))

	for _, req := range requests {
		if verr, ok := req.ValidateServerSide(); !ok {
			responses = append(responses, newNativeErrorResponse(recoverRequestID(req.ID), verr))
			continue
		}

		if req.IsNotification() {
			s.Notify(ctx, req)
			continue
		}
		responses = append(responses, s.Call(ctx, req))
	}

	if len(responses) == 0 {
		// A batch made up entirely of notifications produces no response
		// body at all.
		return nil
	}

	data, err := json.Marshal(responses)
	if err != nil {
		return mustMarshalResponse(NewErrorResponse(nil, InternalError(WithCause(err))))
	}
	return data
}

func mustMarshalResponse(res Response) []byte {
	data, err := json.Marshal(res)
	if err != nil {
		// Responses are built exclusively from already-validated,
		// already-marshaled components; a failure here would indicate a
		// defect in this package, not bad input.
		panic(err)
	}
	return data
}
