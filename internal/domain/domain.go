// Package domain holds the session-level types and interfaces shared by the
// stores, the relay client, and the application services. The protocol
// engine itself lives under internal/protocol and knows nothing of these.
package domain

import (
	"qshield/internal/protocol/suite2"
)

// Peer identifies a conversation partner at the relay.
type Peer string

// SessionRecord is everything the client persists per peer: the suite-2
// session state plus the envelope routing parameters agreed at establish.
type SessionRecord struct {
	Peer       Peer                 `json:"peer"`
	Profile    string               `json:"profile"`
	RouteToken []byte               `json:"route_token"`
	State      *suite2.SessionState `json:"state"`
}

// SessionStore persists session records encrypted at rest.
type SessionStore interface {
	Save(passphrase string, rec SessionRecord) error
	Load(passphrase string, peer Peer) (SessionRecord, bool, error)
	List() ([]Peer, error)
}

// RelayClient is the transport to the relay. It moves opaque envelope bytes
// and never interprets them.
type RelayClient interface {
	Send(to, from Peer, envelope []byte) error
	Poll(id Peer, max int) ([][]byte, error)
	Ack(id Peer, count int) error
}
