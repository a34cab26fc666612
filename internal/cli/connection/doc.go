// Package connection is the HTTP transport of the Mulligan client.
//
// HTTPClient issues JSON requests against a fixed base address. It knows
// nothing about credentials or response shapes: headers are supplied per
// request by the API client, and any response that arrives, whatever its
// status, is returned as a *Response. An error is returned only when no
// response was received.
package connection
