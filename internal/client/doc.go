// Package client is the Mulligan API client.
//
// It attaches the session credential to every request, normalizes list
// payloads into a single Page shape and classifies failures into the
// domain error taxonomy. A 401 on a request that carried a credential is
// reported to the Authenticator exactly once.
package client
