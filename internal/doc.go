// Package internal contains secret-material primitives that are
// intentionally private to authkit: secure random generation, storage
// hashing, and backup code formatting.
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API.
//   - Be imported by any package outside the authkit module.
package internal
