// Package jwt signs and verifies the engine's three token classes
// (session, API access, and API refresh) with typed claim sets and a
// token_type discriminant checked at parse time.
package jwt
