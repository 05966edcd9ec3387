// Package authkit is the credential and token lifecycle engine of the
// courierlog route tracker. It issues, verifies, rotates, and revokes
// every proof of identity the system uses: short-lived signed session
// tokens, long-lived scoped API tokens with paired refresh tokens,
// TOTP two-factor authentication, and single-use backup recovery codes.
//
// The package is a library, not a service. The host application
// implements [UserProvider] against its own user storage, picks a
// [refresh.Store] for rotation chains, and constructs an [Engine]
// through [Builder]. All Engine methods are safe for concurrent use
// after Build.
//
// # Architecture boundaries
//
// authkit is the public surface. Signing lives in jwt/, rotation chain
// persistence in refresh/, and secret primitives in internal/. Routing,
// user CRUD, geocoding, and notification delivery are external
// collaborators and never appear here.
//
// # What this package must NOT do
//
//   - Persist a raw token or backup code; only storage hashes survive.
//   - Make authorization decisions beyond scope-string matching.
//   - Handle password login; the first factor is the host's OAuth flow.
//   - Retry a failed store call (retried verification widens the
//     brute-force window).
package authkit
