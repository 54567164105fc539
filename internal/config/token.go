package config

import (
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "biovault-desktop"
	keyringUser    = "agent-bridge-token"

	tokenEnvVar = "AGENT_BRIDGE_TOKEN"
)

// BridgeToken resolves the token the command bridge checks incoming
// requests against. Precedence (spec §1.3, §4.5 "Auth"): the
// AGENT_BRIDGE_TOKEN environment variable, then the OS keyring entry
// saved by a previous run, else empty (auth disabled, local dev only).
func BridgeToken() (string, error) {
	if v := os.Getenv(tokenEnvVar); v != "" {
		return v, nil
	}

	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// SaveBridgeToken persists a bridge token to the OS keyring so future
// daemon starts pick it up without requiring the environment variable.
func SaveBridgeToken(token string) error {
	return keyring.Set(keyringService, keyringUser, token)
}

// ClearBridgeToken removes any keyring-stored bridge token.
func ClearBridgeToken() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
