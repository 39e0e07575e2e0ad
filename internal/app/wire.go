// Package app wires the stores, relay client, and protocol engine into the
// narrow service surface the CLI uses.
package app

import (
	"fmt"

	"qshield/internal/crypto/stdcrypto"
	"qshield/internal/domain"
	"qshield/internal/kt"
	"qshield/internal/protocol/envelope"
	"qshield/internal/protocol/suite2"
	"qshield/internal/relay"
	"qshield/internal/store"
)

// Wire bundles the dependency graph behind the CLI commands.
type Wire struct {
	Std      stdcrypto.Suite
	Engine   *suite2.Suite
	Sessions domain.SessionStore
	Relay    domain.RelayClient
	Verifier kt.Verifier
	Profile  envelope.Profile
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	profile, err := envelope.ParseProfile(cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = kt.Stub{}
	}
	std := stdcrypto.Suite{}
	return &Wire{
		Std:      std,
		Engine:   suite2.New(std, std, std, std, std),
		Sessions: store.NewSessionFileStore(cfg.Home),
		Relay:    relay.NewHTTP(cfg.RelayURL, cfg.HTTP),
		Verifier: verifier,
		Profile:  profile,
	}, nil
}
