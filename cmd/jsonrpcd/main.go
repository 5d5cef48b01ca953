// Command jsonrpcd is a tiny example JSON-RPC daemon. It exists to exercise
// the configuration, CLI and routing dependencies around the jsonrpc2
// package; it is not meant to be a production service.
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/gorilla/mux"
	"github.com/urfave/cli/v2"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"

	"github.com/lattice-rpc/jsonrpc2"
	"github.com/lattice-rpc/jsonrpc2/middleware/otelrpc"
)

func main() {
	app := &cli.App{
		Name:  "jsonrpcd",
		Usage: "an example JSON-RPC server built on github.com/lattice-rpc/jsonrpc2",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "the path to the configuration file",
				Value: "config.yaml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "start the JSON-RPC server",
				Action: func(c *cli.Context) error {
					return run(c.String("config"))
				},
			},
			{
				Name:  "config",
				Usage: "show the resolved configuration",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c.String("config"))
					if err != nil {
						return err
					}

					_, err = fmt.Fprintf(
						c.App.Writer,
						"listenAddress: %s\nlogLevel: %s\nmethodTimeout: %s\n",
						cfg.ListenAddress,
						cfg.LogLevel,
						cfg.MethodTimeout,
					)
					return err
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run loads the configuration, wires the JSON-RPC router and middleware,
// and serves until interrupted.
func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("unable to create trace exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
	)
	defer tracerProvider.Shutdown(ctx) // nolint:errcheck

	router := newRouter(cfg.MethodTimeout)

	var exchanger jsonrpc2.Exchanger = &otelrpc.Tracing{
		Next:           router,
		TracerProvider: tracerProvider,
		ServiceName:    "jsonrpcd",
		CreateNewSpan:  true,
	}

	// cfg.LogLevel is resolved but the underlying dodeca logger has no
	// level concept of its own; it is carried through the config layer so
	// a future ExchangeLogger implementation can honor it.
	logger := logging.StandardLogger{
		Caller: stdlog.New(os.Stdout, "", stdlog.LstdFlags),
	}

	handler := &jsonrpc2.HTTPHandler{
		Exchanger: exchanger,
		Logger:    jsonrpc2.DefaultExchangeLogger{Target: logger},
	}

	mux := newMux(handler)

	server := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: mux,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// newMux builds the HTTP mux exposing the JSON-RPC endpoint and a health
// check used by orchestrators.
func newMux(handler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/rpc", handler).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return r
}
