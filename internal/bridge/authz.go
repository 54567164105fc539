package bridge

// Authorizer decides whether a bridge is willing to dispatch a given
// command at all, independent of caller identity: a settings-driven
// disable flag plus a per-command blocklist (spec §4.5 "Authorization").
type Authorizer struct {
	disabled bool
	blocked  map[string]struct{}
}

// NewAuthorizer builds an Authorizer from the bridge's settings.
func NewAuthorizer(disabled bool, blockedCommands []string) *Authorizer {
	blocked := make(map[string]struct{}, len(blockedCommands))
	for _, c := range blockedCommands {
		blocked[c] = struct{}{}
	}
	return &Authorizer{disabled: disabled, blocked: blocked}
}

// BridgeDisabled reports whether the entire bridge should refuse traffic.
func (a *Authorizer) BridgeDisabled() bool {
	return a.disabled
}

// Allowed reports whether method may be dispatched.
func (a *Authorizer) Allowed(method string) bool {
	if a.disabled {
		return false
	}
	_, blocked := a.blocked[method]
	return !blocked
}
