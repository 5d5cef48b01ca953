package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/lattice-rpc/jsonrpc2"
)

// mediaType is the MIME media-type for JSON-RPC requests and responses when
// delivered over HTTP.
const mediaType = "application/json"

// Client is an implementation of jsonrpc2.Connector that delivers requests
// to a JSON-RPC server over HTTP. Pair it with a jsonrpc2.Client to perform
// calls and notifications over the network.
type Client struct {
	// HTTPClient is the HTTP client used to make requests. If it is nil,
	// http.DefaultClient is used.
	HTTPClient *http.Client

	// URL is the URL of the JSON-RPC server.
	URL string

	// Context, if non-nil, is used as the base context for outgoing
	// requests. If nil, context.Background() is used.
	Context context.Context
}

// Send posts request to the server and returns the raw response body.
//
// It returns an empty byte slice if the server responds with no body, which
// is expected when request encodes a notification.
func (c *Client) Send(request []byte) ([]byte, error) {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.URL,
		bytes.NewReader(request),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to build JSON-RPC HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mediaType)

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	httpRes, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("unable to send JSON-RPC HTTP request: %w", err)
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read JSON-RPC HTTP response: %w", err)
	}

	if httpRes.StatusCode >= 400 && len(body) == 0 {
		return nil, fmt.Errorf(
			"unexpected HTTP %d (%s) status code with no JSON-RPC response body",
			httpRes.StatusCode,
			http.StatusText(httpRes.StatusCode),
		)
	}

	return body, nil
}

var _ jsonrpc2.Connector = (*Client)(nil)
