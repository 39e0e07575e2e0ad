package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qshield/internal/domain"
)

// SessionFileStore keeps one sealed record per peer under <home>/sessions.
type SessionFileStore struct {
	dir string
}

var _ domain.SessionStore = (*SessionFileStore)(nil)

// NewSessionFileStore roots the store at home; the directory is created on
// first save.
func NewSessionFileStore(home string) *SessionFileStore {
	return &SessionFileStore{dir: filepath.Join(home, "sessions")}
}

func (s *SessionFileStore) path(peer domain.Peer) string {
	return filepath.Join(s.dir, sanitize(string(peer))+".qs")
}

// label is the AD binding for a peer's sealed record; it tracks the file
// name so a blob copied between peer files fails to open.
func (s *SessionFileStore) label(peer domain.Peer) string {
	return "session/" + sanitize(string(peer))
}

// Save seals and atomically replaces the record for rec.Peer.
func (s *SessionFileStore) Save(passphrase string, rec domain.SessionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode session for %q: %w", rec.Peer, err)
	}
	sealed, err := seal(passphrase, s.label(rec.Peer), raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("store: create session dir: %w", err)
	}
	tmp := s.path(rec.Peer) + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("store: write session for %q: %w", rec.Peer, err)
	}
	if err := os.Rename(tmp, s.path(rec.Peer)); err != nil {
		return fmt.Errorf("store: replace session for %q: %w", rec.Peer, err)
	}
	return nil
}

// Load opens the record for peer. The boolean reports existence.
func (s *SessionFileStore) Load(passphrase string, peer domain.Peer) (domain.SessionRecord, bool, error) {
	data, err := os.ReadFile(s.path(peer))
	if os.IsNotExist(err) {
		return domain.SessionRecord{}, false, nil
	}
	if err != nil {
		return domain.SessionRecord{}, false, fmt.Errorf("store: read session for %q: %w", peer, err)
	}
	raw, err := open(passphrase, s.label(peer), data)
	if err != nil {
		return domain.SessionRecord{}, false, err
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.SessionRecord{}, false, ErrWrongPassphrase
	}
	return rec, true, nil
}

// List returns the peers with stored sessions.
func (s *SessionFileStore) List() ([]domain.Peer, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	var peers []domain.Peer
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".qs") {
			continue
		}
		peers = append(peers, domain.Peer(strings.TrimSuffix(name, ".qs")))
	}
	return peers, nil
}

// sanitize keeps peer-derived file names path-safe.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '_'
	}, name)
}
