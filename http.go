package jsonrpc2

import (
	"context"
	"io"
	"mime"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

// HTTPHandler is an implementation of http.Handler that provides an
// HTTP-based transport for a JSON-RPC server.
type HTTPHandler struct {
	// Exchanger is the Exchanger that handles JSON-RPC requests.
	Exchanger Exchanger

	// Logger, if non-nil, receives diagnostic events for each exchange. If
	// nil, a production zap-backed logger is used.
	Logger ExchangeLogger
}

// ServeHTTP handles the HTTP request.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := &httpResponseWriter{
		w:   w,
		enc: json.NewEncoder(w),
	}

	if !validateHTTPHeaders(rw, r) {
		return
	}

	// Perform the exchange. Any error here is an IO problem with the HTTP
	// response, so we can't inform the HTTP client about it in any way.
	//
	// We leave it up to hypothetical HTTP middleware to log the error, if
	// necessary.
	Exchange( // nolint:errcheck
		r.Context(),
		h.Exchanger,
		&httpRequestSetReader{body: r.Body},
		rw,
		h.Logger,
	)
}

// validateHTTPHeaders checks that the necessary HTTP request headers are set
// correctly.
//
// If any header values are invalid it writes a JSON-RPC error to rw and
// returns false.
func validateHTTPHeaders(rw *httpResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		rw.writeError(
			http.StatusMethodNotAllowed,
			NewErrorResponse(
				nil,
				NewErrorWithReservedCode(
					InvalidRequestCode,
					WithMessage("JSON-RPC requests must use the POST method"),
				),
			),
		)

		return false
	}

	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != httpMediaType {
		rw.writeError(
			http.StatusUnsupportedMediaType,
			NewErrorResponse(
				nil,
				NewErrorWithReservedCode(
					InvalidRequestCode,
					WithMessage("JSON-RPC requests must use the application/json content type"),
				),
			),
		)

		return false
	}

	return true
}

// httpMediaType is the MIME media-type for JSON-RPC requests and responses
// when delivered over HTTP.
const httpMediaType = "application/json"

var (
	openArray  = []byte(`[`)
	closeArray = []byte(`]`)
	comma      = []byte(`,`)
)

// httpRequestSetReader is an implementation of RequestSetReader that reads a
// single JSON-RPC request set from the body of an HTTP request.
type httpRequestSetReader struct {
	body io.Reader
	read bool
}

// Read reads the request set from the HTTP request body.
//
// It is only ever expected to be called once per HTTP request; a second call
// returns io.EOF since the body has already been consumed.
func (r *httpRequestSetReader) Read(ctx context.Context) (RequestSet, error) {
	if err := ctx.Err(); err != nil {
		return RequestSet{}, err
	}

	if r.read {
		return RequestSet{}, io.EOF
	}
	r.read = true

	return ParseRequestSet(r.body)
}

// httpResponseWriter is an implementation of ResponseWriter that sends
// responses to HTTP requests.
type httpResponseWriter struct {
	w       http.ResponseWriter
	enc     *jsoniter.Encoder
	isBatch bool
}

// WriteError writes an error response that is a result of some problem with
// the request set as a whole.
//
// It immediately writes the HTTP response headers followed by the HTTP body.
//
// If the error uses one of the error codes reserved by the JSON-RPC
// specification the HTTP status code is set to the most appropriate
// equivalent. Application-defined JSON-RPC errors always result in a HTTP
// 200 OK, as they are considered part of normal operation of the transport.
func (w *httpResponseWriter) WriteError(res ErrorResponse) error {
	return w.writeError(0, res)
}

// WriteUnbatched writes a response to an individual request that was not
// part of a batch.
//
// It immediately writes the HTTP response headers followed by the HTTP body.
//
// If res is an ErrorResponse and its error code is one of the error codes
// reserved by the JSON-RPC specification the HTTP status code is set to the
// most appropriate equivalent. Application-defined JSON-RPC errors always
// result in a HTTP 200 OK, as they are considered part of normal operation
// of the transport.
func (w *httpResponseWriter) WriteUnbatched(res Response) error {
	if e, ok := res.(ErrorResponse); ok {
		return w.writeError(0, e)
	}

	w.w.Header().Set("Content-Type", httpMediaType)
	return w.enc.Encode(res)
}

// WriteBatched writes a response to an individual request that was part of a
// batch.
//
// If this is the first response of the batch, it immediately writes the HTTP
// response headers and the opening bracket of the array that encapsulates
// the batch of responses.
//
// The HTTP status is always HTTP 200 OK, as even if res is an ErrorResponse,
// other responses in the batch may indicate a success.
func (w *httpResponseWriter) WriteBatched(res Response) error {
	separator := comma

	if !w.isBatch {
		w.w.Header().Set("Content-Type", httpMediaType)
		w.isBatch = true
		separator = openArray
	}

	if _, err := w.w.Write(separator); err != nil {
		return err
	}

	return w.enc.Encode(res)
}

// Close is called to signal that there are no more responses to be sent.
//
// If batched responses have been written, it writes the closing bracket of
// the array that encapsulates the responses.
func (w *httpResponseWriter) Close() error {
	if w.isBatch {
		_, err := w.w.Write(closeArray)
		return err
	}

	return nil
}

// writeError writes a JSON-RPC error response to the HTTP response.
func (w *httpResponseWriter) writeError(code int, res ErrorResponse) error {
	if code == 0 {
		code = httpStatusFromErrorCode(res.Error.Code)
	}

	w.w.Header().Set("Content-Type", httpMediaType)
	w.w.WriteHeader(code)
	return w.enc.Encode(res)
}

// httpStatusFromErrorCode returns the appropriate HTTP status code to send
// in response to a specific JSON-RPC error code.
func httpStatusFromErrorCode(c ErrorCode) int {
	if !c.IsReserved() {
		// If the error code is not "reserved" that means it's an
		// application-defined error. We write the response using an OK
		// status as even though an error occurred there was no problem with
		// the request or the HTTP encapsulation itself.
		return http.StatusOK
	}

	switch c {
	case ParseErrorCode:
		return http.StatusBadRequest
	case InvalidRequestCode:
		return http.StatusBadRequest
	case InvalidParametersCode:
		return http.StatusBadRequest
	case MethodNotFoundCode:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
