package httptransport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/lattice-rpc/jsonrpc2"
	. "github.com/lattice-rpc/jsonrpc2/transport/httptransport"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Client", func() {
	var (
		server    *httptest.Server
		connector *Client
		client    *jsonrpc2.Client
	)

	BeforeEach(func() {
		handler := &jsonrpc2.HTTPHandler{
			Exchanger: jsonrpc2.NewRouter(
				jsonrpc2.WithRoute(
					"echo",
					func(_ context.Context, params []int) ([]int, error) {
						return params, nil
					},
				),
				jsonrpc2.WithRoute(
					"error",
					jsonrpc2.NoResult(
						func(_ context.Context, params interface{}) error {
							return jsonrpc2.NewError(
								123,
								jsonrpc2.WithMessage("<message>"),
								jsonrpc2.WithData(params),
							)
						},
					),
				),
			),
		}

		server = httptest.NewServer(handler)

		connector = &Client{URL: server.URL}
		client = jsonrpc2.NewClient(connector, jsonrpc2.V2)
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("func Send()", func() {
		It("delivers a call and returns the raw response body", func() {
			params := []int{1, 2, 3}
			result, err := client.CallMethod(client.NextID(), "echo", 1, 2, 3)
			Expect(err).ShouldNot(HaveOccurred())

			var echoed []int
			Expect(result.Result).ToNot(BeEmpty())
			Expect(json.Unmarshal(result.Result, &echoed)).To(Succeed())
			Expect(echoed).To(Equal(params))
		})

		It("propagates a JSON-RPC error response produced by the server", func() {
			_, err := client.CallMethod(client.NextID(), "error", 1, 2, 3)
			Expect(err).Should(HaveOccurred())
		})

		It("delivers a notification without error", func() {
			err := client.CallNotification("echo", 1, 2, 3)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("returns an error if there is a network error", func() {
			server.Close()

			_, err := client.CallMethod(client.NextID(), "echo", 1, 2, 3)
			Expect(err).To(HaveOccurred())
		})

		It("returns an error if the server responds with an error status and no body", func() {
			server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			})

			_, err := client.CallMethod(client.NextID(), "echo", 1, 2, 3)
			Expect(err).To(HaveOccurred())
		})
	})
})
