// Package httptransport provides an HTTP-based Connector for use with a
// jsonrpc2.Client.
//
// Requests are sent as HTTP POST requests carrying a JSON-RPC envelope in
// the body; the server-side HTTP transport lives directly in the root
// package as jsonrpc2.HTTPHandler.
package httptransport
