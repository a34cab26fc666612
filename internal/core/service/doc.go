// Package service holds the client-side session owner.
//
// SessionService is the only component that writes the credential. It
// persists the token through a storage.TokenStore, validates it against the
// profile endpoint and drives the session state machine:
//
//	uninitialized → checking → authenticated | unauthenticated
//	authenticated → unauthenticated
//	unauthenticated → checking → authenticated
//
// Listeners registered with OnUnauthenticated run synchronously whenever the
// session drops to unauthenticated, before the triggering call returns.
package service
