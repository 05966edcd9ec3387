package authkit

// Scope strings confine what an API token may be used for. The set is
// fixed for wire compatibility with courierlog clients.
const (
	ScopeReadRoutes        = "read:routes"
	ScopeWriteRoutes       = "write:routes"
	ScopeDeleteRoutes      = "delete:routes"
	ScopeReadLocations     = "read:locations"
	ScopeWriteLocations    = "write:locations"
	ScopeDeleteLocations   = "delete:locations"
	ScopeReadDashboard     = "read:dashboard"
	ScopeReadConfiguration = "read:configuration"
	ScopeReadUsers         = "read:users"
)

// AllowedScopes returns the fixed allow-list every issuance request is
// intersected against.
func AllowedScopes() []string {
	return []string{
		ScopeReadRoutes,
		ScopeWriteRoutes,
		ScopeDeleteRoutes,
		ScopeReadLocations,
		ScopeWriteLocations,
		ScopeDeleteLocations,
		ScopeReadDashboard,
		ScopeReadConfiguration,
		ScopeReadUsers,
	}
}

// DefaultScopes returns the safe subset granted when a request names no
// scopes at all.
func DefaultScopes() []string {
	return []string{
		ScopeReadRoutes,
		ScopeWriteRoutes,
		ScopeReadLocations,
		ScopeWriteLocations,
		ScopeReadDashboard,
	}
}

// grantScopes applies the issuance scope policy: an empty request gets
// the default subset, a nonempty request is intersected with the
// allow-list preserving request order, and a request that survives with
// nothing fails: zero scopes are never granted silently.
func grantScopes(requested, allowed, defaults []string) ([]string, error) {
	if len(requested) == 0 {
		out := make([]string, len(defaults))
		copy(out, defaults)
		return out, nil
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = struct{}{}
	}

	granted := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		if _, ok := allowedSet[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		granted = append(granted, s)
	}
	if len(granted) == 0 {
		return nil, ErrNoValidScopes
	}
	return granted, nil
}
