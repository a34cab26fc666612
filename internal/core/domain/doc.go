// Package domain defines the core domain models for the Mulligan client.
//
// Domain models are plain values without IO dependencies. This package
// contains:
//
//   - Credential: the bearer token and the profile it authenticates
//   - SessionStatus: the session state machine and its legal transitions
//   - Tournament, Club, Golfer, User and the nested tournament records
//   - Errors: the classified error taxonomy shared by every layer
//
// Classification of transport failures happens once, in the API client;
// everything above it passes *DomainError values through unchanged.
package domain
