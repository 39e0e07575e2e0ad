package app

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"qshield/internal/domain"
	"qshield/internal/protocol/envelope"
	"qshield/internal/protocol/handshake"
	"qshield/internal/protocol/suite2"
)

// EstablishInput is the JSON file an external base-handshake runner produces:
// the suite-2 seed outputs, the envelope route token agreed with the relay,
// and the KT materials for the peer's bundle.
type EstablishInput struct {
	handshake.Outputs
	RouteToken []byte           `json:"route_token"`
	Bundle     handshake.Bundle `json:"bundle"`
}

// EstablishSession authenticates the peer bundle, derives the suite-2
// session, and stores it for peer. The KT gate is fail-closed: with the stub
// verifier wired this refuses.
func (w *Wire) EstablishSession(passphrase string, peer domain.Peer, inputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("app: read handshake outputs: %w", err)
	}
	var in EstablishInput
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("app: parse handshake outputs: %w", err)
	}

	if err := handshake.Authenticate(w.Verifier, w.Std, in.Bundle); err != nil {
		return err
	}
	st, err := suite2.Establish(w.Std, in.Outputs)
	if err != nil {
		return err
	}
	return w.Sessions.Save(passphrase, domain.SessionRecord{
		Peer:       peer,
		Profile:    w.Profile.String(),
		RouteToken: in.RouteToken,
		State:      st,
	})
}

// SendMessage seals plaintext for peer, pads it into the session's envelope
// profile, and hands it to the relay. State is persisted only after the
// relay accepts delivery.
func (w *Wire) SendMessage(passphrase string, me, peer domain.Peer, plaintext []byte) error {
	rec, ok, err := w.Sessions.Load(passphrase, peer)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("app: no session for %q; run establish first", peer)
	}

	wire, err := w.Engine.Send(rec.State, plaintext)
	if err != nil {
		return err
	}
	profile, err := envelope.ParseProfile(rec.Profile)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	env := envelope.Envelope{
		Version:    envelope.VersionV1,
		RouteToken: rec.RouteToken,
		Payload:    wire,
		// TimestampBucket stays zero: the service edge stamps it.
	}
	rng := make([]byte, profile.MinSize())
	if _, err := rand.Read(rng); err != nil {
		return fmt.Errorf("app: draw padding: %w", err)
	}
	padded, err := env.PadToProfile(profile, rng)
	if err != nil {
		return err
	}
	if err := w.Relay.Send(peer, me, padded.Encode()); err != nil {
		return err
	}
	return w.Sessions.Save(passphrase, rec)
}

// Received is one delivery outcome. Rejected envelopes keep their reason
// code and leave the session untouched.
type Received struct {
	From      domain.Peer
	Plaintext []byte
	Err       error
}

// RecvMessages polls the relay for me, unwraps each envelope, routes it to
// the matching session by route token, and opens it with the engine.
// Processed envelopes (delivered or rejected) are acknowledged; sessions are
// persisted only when their state advanced.
func (w *Wire) RecvMessages(passphrase string, me domain.Peer, max int) ([]Received, error) {
	envs, err := w.Relay.Poll(me, max)
	if err != nil {
		return nil, err
	}
	if len(envs) == 0 {
		return nil, nil
	}

	peers, err := w.Sessions.List()
	if err != nil {
		return nil, err
	}
	type openSession struct {
		rec   domain.SessionRecord
		dirty bool
	}
	sessions := make(map[domain.Peer]*openSession, len(peers))
	for _, p := range peers {
		rec, ok, err := w.Sessions.Load(passphrase, p)
		if err != nil {
			return nil, err
		}
		if ok {
			sessions[p] = &openSession{rec: rec}
		}
	}

	var out []Received
	for _, raw := range envs {
		env, err := envelope.Decode(raw)
		if err != nil {
			out = append(out, Received{Err: err})
			continue
		}
		var sess *openSession
		var from domain.Peer
		for p, s := range sessions {
			if bytes.Equal(s.rec.RouteToken, env.RouteToken) {
				sess, from = s, p
				break
			}
		}
		if sess == nil {
			out = append(out, Received{Err: fmt.Errorf("app: no session for route token")})
			continue
		}
		pt, err := w.Engine.Receive(sess.rec.State, env.Payload)
		if err != nil {
			out = append(out, Received{From: from, Err: err})
			continue
		}
		sess.dirty = true
		out = append(out, Received{From: from, Plaintext: pt})
	}

	for _, s := range sessions {
		if !s.dirty {
			continue
		}
		if err := w.Sessions.Save(passphrase, s.rec); err != nil {
			return out, err
		}
	}
	if err := w.Relay.Ack(me, len(envs)); err != nil {
		return out, err
	}
	return out, nil
}

// SessionStatus summarizes one session's counters.
type SessionStatus struct {
	Peer              domain.Peer
	Profile           string
	SendCount         uint32
	RecvCount         uint32
	NextAdvID         uint32
	PeerMaxAdvIDSeen  uint32
	SkippedKeys       int
	KnownTargets      int
	TombstonedTargets int
}

// Status reports the stored session for peer.
func (w *Wire) Status(passphrase string, peer domain.Peer) (SessionStatus, error) {
	rec, ok, err := w.Sessions.Load(passphrase, peer)
	if err != nil {
		return SessionStatus{}, err
	}
	if !ok {
		return SessionStatus{}, fmt.Errorf("app: no session for %q", peer)
	}
	st := rec.State
	return SessionStatus{
		Peer:              peer,
		Profile:           rec.Profile,
		SendCount:         st.Send.Ns,
		RecvCount:         st.Recv.Nr,
		NextAdvID:         st.NextAdvID,
		PeerMaxAdvIDSeen:  st.Recv.PeerMaxAdvIDSeen,
		SkippedKeys:       len(st.Recv.MKSkipped),
		KnownTargets:      len(st.Recv.KnownTargets),
		TombstonedTargets: len(st.Recv.TombstonedTargets),
	}, nil
}
