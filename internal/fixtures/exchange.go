// Package fixtures provides test doubles used by the package's own internal
// test suites.
package fixtures

import (
	"context"

	"github.com/lattice-rpc/jsonrpc2"
)

// ExchangerStub is a test implementation of the Exchanger interface.
type ExchangerStub struct {
	CallFunc   func(context.Context, jsonrpc2.Request) jsonrpc2.Response
	NotifyFunc func(context.Context, jsonrpc2.Request)
}

// Call handles a call request and returns the response.
func (s *ExchangerStub) Call(ctx context.Context, req jsonrpc2.Request) jsonrpc2.Response {
	if s.CallFunc != nil {
		return s.CallFunc(ctx, req)
	}

	return nil
}

// Notify handles a notification request.
func (s *ExchangerStub) Notify(ctx context.Context, req jsonrpc2.Request) {
	if s.NotifyFunc != nil {
		s.NotifyFunc(ctx, req)
	}
}

// RequestSetReaderStub is a test implementation of the RequestSetReader
// interface.
type RequestSetReaderStub struct {
	ReadFunc func(context.Context) (jsonrpc2.RequestSet, error)
}

// Read reads the next RequestSet that is to be processed.
func (s *RequestSetReaderStub) Read(ctx context.Context) (jsonrpc2.RequestSet, error) {
	if s.ReadFunc != nil {
		return s.ReadFunc(ctx)
	}

	return jsonrpc2.RequestSet{}, nil
}

// ResponseWriterStub is a test implementation of the ResponseWriter
// interface.
type ResponseWriterStub struct {
	WriteErrorFunc     func(jsonrpc2.ErrorResponse) error
	WriteUnbatchedFunc func(jsonrpc2.Response) error
	WriteBatchedFunc   func(jsonrpc2.Response) error
	CloseFunc          func() error
}

// WriteError writes an error response that is a result of some problem with
// the request set as a whole.
func (s *ResponseWriterStub) WriteError(res jsonrpc2.ErrorResponse) error {
	if s.WriteErrorFunc != nil {
		return s.WriteErrorFunc(res)
	}

	return nil
}

// WriteUnbatched writes a response to an individual request that was not
// part of a batch.
func (s *ResponseWriterStub) WriteUnbatched(res jsonrpc2.Response) error {
	if s.WriteUnbatchedFunc != nil {
		return s.WriteUnbatchedFunc(res)
	}

	return nil
}

// WriteBatched writes a response to an individual request that was part of
// a batch.
func (s *ResponseWriterStub) WriteBatched(res jsonrpc2.Response) error {
	if s.WriteBatchedFunc != nil {
		return s.WriteBatchedFunc(res)
	}

	return nil
}

// Close is called to signal that there are no more responses to be sent.
func (s *ResponseWriterStub) Close() error {
	if s.CloseFunc != nil {
		return s.CloseFunc()
	}

	return nil
}
