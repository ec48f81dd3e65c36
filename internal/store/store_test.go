package store_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"cloak/internal/domain"
	"cloak/internal/store"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := store.OpenDB(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{
		XPub:   domain.X25519Public{1},
		XPriv:  domain.X25519Private{2},
		EdPub:  domain.Ed25519Public{3},
		EdPriv: domain.Ed25519Private{4},
	}

	if err := ids.SaveIdentity(pass, id); err != nil {
		t.Fatalf("save identity: %v", err)
	}

	got, err := ids.LoadIdentity(pass)
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got.XPub != id.XPub || got.EdPub != id.EdPub {
		t.Fatalf("mismatch after load")
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	id := domain.Identity{XPub: domain.X25519Public{1}, XPriv: domain.X25519Private{2}}

	if err := ids.SaveIdentity("correct", id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if _, err := ids.LoadIdentity("wrong"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestIdentity_Missing_Fails(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())
	if _, err := ids.LoadIdentity("any"); err == nil {
		t.Fatal("expected error when no identity exists")
	}
}

func TestSession_SaveLoadDelete(t *testing.T) {
	db := openDB(t)
	sessions := store.NewSessionBadgerStore(db)

	record := domain.SessionRecord{
		Conversation: "bob",
		Remote:       "bob",
		Status:       domain.StatusEstablished,
		Fingerprint:  "AAAA BBBB",
		Ratchet: domain.RatchetState{
			RootKey: []byte{1, 2, 3},
			Ns:      7,
			Skipped: map[string][]byte{"k": {9}},
		},
	}
	if err := sessions.SaveSession(record); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, ok, err := sessions.LoadSession("bob")
	if err != nil || !ok {
		t.Fatalf("load session: ok=%v err=%v", ok, err)
	}
	if got.Status != domain.StatusEstablished || got.Ratchet.Ns != 7 {
		t.Fatalf("mismatch after load: %+v", got)
	}
	if len(got.Ratchet.Skipped) != 1 {
		t.Fatalf("skipped keys not persisted")
	}

	if err := sessions.DeleteSession("bob"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := sessions.LoadSession("bob"); err != nil || ok {
		t.Fatalf("session still present after delete: ok=%v err=%v", ok, err)
	}

	// Deleting a missing session is not an error.
	if err := sessions.DeleteSession("bob"); err != nil {
		t.Fatalf("delete missing session: %v", err)
	}
}

func TestSession_List(t *testing.T) {
	db := openDB(t)
	sessions := store.NewSessionBadgerStore(db)

	for _, name := range []string{"bob", "carol"} {
		err := sessions.SaveSession(domain.SessionRecord{
			Conversation: domain.ConversationID(name),
			Remote:       domain.RemoteIdentity(name),
			Status:       domain.StatusEstablished,
		})
		if err != nil {
			t.Fatalf("save session %q: %v", name, err)
		}
	}

	all, err := sessions.ListSessions()
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d sessions, want 2", len(all))
	}
}

func TestSession_SchemaMismatchFailsLoudly(t *testing.T) {
	db := openDB(t)
	sessions := store.NewSessionBadgerStore(db)

	// Simulate a record written by an incompatible engine version.
	old := domain.SessionRecord{Conversation: "old", Remote: "old"}
	old.SchemaVersion = 99
	raw, err := json.Marshal(old)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("session/old"), raw)
	})
	if err != nil {
		t.Fatalf("seed raw record: %v", err)
	}

	if _, _, err := sessions.LoadSession("old"); !errors.Is(err, domain.ErrSchemaVersion) {
		t.Fatalf("got %v, want ErrSchemaVersion", err)
	}
}

func TestPreKey_SignedRoundTrip(t *testing.T) {
	db := openDB(t)
	prekeys := store.NewPreKeyBadgerStore(db)

	priv := domain.X25519Private{1}
	pub := domain.X25519Public{2}
	sig := []byte{3, 4}
	if err := prekeys.SaveSignedPreKey("spk-1", priv, pub, sig); err != nil {
		t.Fatalf("save signed pre-key: %v", err)
	}

	gotPriv, gotPub, gotSig, ok, err := prekeys.LoadSignedPreKey("spk-1")
	if err != nil || !ok {
		t.Fatalf("load signed pre-key: ok=%v err=%v", ok, err)
	}
	if gotPriv != priv || gotPub != pub || len(gotSig) != 2 {
		t.Fatal("signed pre-key mismatch after load")
	}

	if _, _, _, ok, err := prekeys.LoadSignedPreKey("spk-missing"); err != nil || ok {
		t.Fatalf("missing signed pre-key: ok=%v err=%v", ok, err)
	}

	if err := prekeys.SetCurrentSignedPreKeyID("spk-1"); err != nil {
		t.Fatalf("set current: %v", err)
	}
	id, ok, err := prekeys.CurrentSignedPreKeyID()
	if err != nil || !ok || id != "spk-1" {
		t.Fatalf("current signed pre-key: id=%q ok=%v err=%v", id, ok, err)
	}
}

func TestPreKey_OneTimeConsumeOnce(t *testing.T) {
	db := openDB(t)
	prekeys := store.NewPreKeyBadgerStore(db)

	pairs := []domain.OneTimePreKeyPair{
		{ID: "opk-1", Priv: domain.X25519Private{1}, Pub: domain.X25519Public{2}},
		{ID: "opk-2", Priv: domain.X25519Private{3}, Pub: domain.X25519Public{4}},
	}
	if err := prekeys.SaveOneTimePreKeys(pairs); err != nil {
		t.Fatalf("save one-time pre-keys: %v", err)
	}

	publics, err := prekeys.ListOneTimePreKeyPublics()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(publics) != 2 {
		t.Fatalf("got %d publics, want 2", len(publics))
	}

	priv, _, ok, err := prekeys.ConsumeOneTimePreKey("opk-1")
	if err != nil || !ok {
		t.Fatalf("consume: ok=%v err=%v", ok, err)
	}
	if priv != pairs[0].Priv {
		t.Fatal("consumed wrong private key")
	}

	// Second consume must find nothing.
	if _, _, ok, err := prekeys.ConsumeOneTimePreKey("opk-1"); err != nil || ok {
		t.Fatalf("double consume: ok=%v err=%v", ok, err)
	}

	publics, err = prekeys.ListOneTimePreKeyPublics()
	if err != nil {
		t.Fatalf("list after consume: %v", err)
	}
	if len(publics) != 1 {
		t.Fatalf("got %d publics after consume, want 1", len(publics))
	}
}
