package otelrpc

import (
	"context"
	"sync"
	"time"

	"github.com/lattice-rpc/jsonrpc2"
	"github.com/lattice-rpc/jsonrpc2/internal/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/instrument/syncint64"
	"go.opentelemetry.io/otel/metric/unit"
)

// Metrics is an implementation of jsonrpc2.Exchanger that provides OpenTelemetry
// metrics for each JSON-RPC request.
type Metrics struct {
	// Next is the next exchanger in the middleware stack.
	Next jsonrpc2.Exchanger

	// MeterProvider is the OpenTelemetry MeterProvider used to create meters.
	MeterProvider metric.MeterProvider

	// ServiceName is an application specific service name to use in the metric
	// attributes.
	//
	// It may be prefixed with a dot-separated "package name", for example
	// "myapp.test.EchoService".
	//
	// It may be empty, in which case it is omitted from the attributes.
	ServiceName string

	once          sync.Once
	meter         metric.Meter
	calls         syncint64.Counter
	notifications syncint64.Counter
	errors        syncint64.Counter
	duration      syncint64.Histogram
	attributes    []attribute.KeyValue
}

// Call handles a call request and returns the response.
func (m *Metrics) Call(ctx context.Context, req jsonrpc2.Request) jsonrpc2.Response {
	m.init()

	attrs := requestAttributes(req)
	attrs = append(attrs, m.attributes...)

	m.calls.Add(ctx, 1, attrs...)

	start := time.Now()
	res := m.Next.Call(ctx, req)
	elapsed := time.Since(start)

	m.duration.Record(ctx, durationToMillis(elapsed), attrs...)

	if res, ok := res.(jsonrpc2.ErrorResponse); ok {
		attrs = append(attrs, errorResponseAttributes(res)...)
		m.errors.Add(ctx, 1, attrs...)
	}

	return res
}

// Notify handles a notification request.
//
// It forwards the request to m.Next, counting it and recording its duration.
func (m *Metrics) Notify(ctx context.Context, req jsonrpc2.Request) {
	m.init()

	attrs := requestAttributes(req)
	attrs = append(attrs, m.attributes...)

	m.notifications.Add(ctx, 1, attrs...)

	start := time.Now()
	m.Next.Notify(ctx, req)
	elapsed := time.Since(start)

	m.duration.Record(ctx, durationToMillis(elapsed), attrs...)
}

// init initializes the meter and its instruments if they have not already
// been initialized.
func (m *Metrics) init() {
	m.once.Do(func() {
		m.meter = m.MeterProvider.Meter(
			"github.com/lattice-rpc/jsonrpc2/middleware/otelrpc",
			metric.WithInstrumentationVersion(version.Version),
		)

		var err error
		m.calls, err = m.meter.SyncInt64().Counter(
			"rpc.server.calls",
			instrument.WithDescription("The number of JSON-RPC requests that are 'calls'."),
			instrument.WithUnit(unit.Dimensionless),
		)
		if err != nil {
			panic(err)
		}

		m.notifications, err = m.meter.SyncInt64().Counter(
			"rpc.server.notifications",
			instrument.WithDescription("The number of JSON-RPC requests that are 'notifications'."),
			instrument.WithUnit(unit.Dimensionless),
		)
		if err != nil {
			panic(err)
		}

		m.errors, err = m.meter.SyncInt64().Counter(
			"rpc.server.errors",
			instrument.WithDescription("The number of JSON-RPC 'call' requests that result in an error."),
			instrument.WithUnit(unit.Dimensionless),
		)
		if err != nil {
			panic(err)
		}

		m.duration, err = m.meter.SyncInt64().Histogram(
			"rpc.server.duration",
			instrument.WithDescription("The amount of time it takes user-provided handlers to process JSON-RPC requests."),
			instrument.WithUnit(unit.Milliseconds),
		)
		if err != nil {
			panic(err)
		}

		m.attributes = commonAttributes(m.ServiceName)
	})
}

// durationToMillis converts a duration to milliseconds.
func durationToMillis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}
