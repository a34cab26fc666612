// Package tlsroots builds the client TLS configuration.
//
// The system pool is extended with an optional PEM bundle so the client
// can talk to a Mulligan deployment behind a private CA.
package tlsroots
