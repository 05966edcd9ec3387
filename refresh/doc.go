// Package refresh persists opaque authentication-session refresh tokens
// and their rotation lineage. A token chain is forward-linked through
// ReplacedByToken; only the chain tail is ever valid.
//
// Store implementations must make Rotate a single atomic step: of any
// number of concurrent rotations of the same token value, exactly one
// wins and the rest observe [ErrConflict].
//
// # What this package must NOT do
//
//   - Generate token values (the Engine owns issuance).
//   - Import authkit or jwt.
package refresh
