package main

import (
	"context"
	"time"

	"github.com/lattice-rpc/jsonrpc2"
	"github.com/lattice-rpc/jsonrpc2/internal/jsonx"
)

// echoParams is the parameter struct for the "Echo" method.
type echoParams struct {
	Message string `json:"message" validate:"required"`
}

// sumParams is the parameter struct for the "Sum" method.
type sumParams struct {
	Values []float64 `json:"values"`
}

// newRouter builds the example server's method table. Each handler is given
// a context bounded by timeout, demonstrating how an embedder enforces a
// method-level deadline around jsonrpc2's binder/dispatcher.
func newRouter(timeout time.Duration) *jsonrpc2.Router {
	return jsonrpc2.NewRouter(
		jsonrpc2.WithRoute(
			"Echo",
			withTimeout(timeout, func(_ context.Context, params echoParams) (string, error) {
				return params.Message, nil
			}),
			jsonx.WithStructValidation(),
		),
		jsonrpc2.WithRoute(
			"Sum",
			withTimeout(timeout, func(_ context.Context, params sumParams) (float64, error) {
				var total float64
				for _, v := range params.Values {
					total += v
				}
				return total, nil
			}),
		),
	)
}

// withTimeout wraps a handler so that its context is canceled after timeout
// elapses, regardless of the deadline the caller's context already carries.
func withTimeout[P, R any](
	timeout time.Duration,
	handler func(context.Context, P) (R, error),
) func(context.Context, P) (R, error) {
	if timeout <= 0 {
		return handler
	}

	return func(ctx context.Context, params P) (R, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, params)
	}
}
