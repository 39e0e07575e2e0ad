package store_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"qshield/internal/domain"
	"qshield/internal/protocol/suite2"
	"qshield/internal/store"
)

func record() domain.SessionRecord {
	return domain.SessionRecord{
		Peer:       "alice",
		Profile:    "standard",
		RouteToken: []byte("route-token"),
		State: &suite2.SessionState{
			NextAdvID: 3,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := store.NewSessionFileStore(t.TempDir())

	if err := s.Save("pass", record()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Load("pass", "alice")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if got.Peer != "alice" || got.Profile != "standard" {
		t.Fatalf("record fields lost: %+v", got)
	}
	if !bytes.Equal(got.RouteToken, []byte("route-token")) {
		t.Fatal("route token lost")
	}
	if got.State == nil || got.State.NextAdvID != 3 {
		t.Fatalf("session state lost: %+v", got.State)
	}
}

func TestLoadMissingPeer(t *testing.T) {
	s := store.NewSessionFileStore(t.TempDir())
	_, ok, err := s.Load("pass", "nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("missing peer reported as present")
	}
}

func TestWrongPassphrase(t *testing.T) {
	s := store.NewSessionFileStore(t.TempDir())
	if err := s.Save("pass", record()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, _, err := s.Load("wrong", "alice")
	if !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("want ErrWrongPassphrase, got %v", err)
	}
}

func TestSealedRecordIsBoundToPeer(t *testing.T) {
	home := t.TempDir()
	s := store.NewSessionFileStore(home)
	if err := s.Save("pass", record()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Copy alice's sealed file into bob's slot; the AD binding must refuse
	// to open it under the other peer even with the right passphrase.
	data, err := os.ReadFile(filepath.Join(home, "sessions", "alice.qs"))
	if err != nil {
		t.Fatalf("read sealed file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(home, "sessions", "bob.qs"), data, 0o600); err != nil {
		t.Fatalf("write copied file: %v", err)
	}
	_, _, err = s.Load("pass", "bob")
	if !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("want ErrWrongPassphrase for swapped record, got %v", err)
	}
}

func TestList(t *testing.T) {
	s := store.NewSessionFileStore(t.TempDir())
	if peers, err := s.List(); err != nil || len(peers) != 0 {
		t.Fatalf("empty store List = %v, %v", peers, err)
	}
	rec := record()
	if err := s.Save("pass", rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec.Peer = "bob"
	if err := s.Save("pass", rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	peers, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("List = %v, want two peers", peers)
	}
}
