package store_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mchat/internal/crypto"
	"mchat/internal/domain"
	"mchat/internal/store"
)

var (
	keyOnce sync.Once
	testKP  domain.KeyPair
	keyErr  error
)

func testKeyPair(t *testing.T) domain.KeyPair {
	t.Helper()
	keyOnce.Do(func() { testKP, keyErr = crypto.GenerateKeyPair(512) })
	if keyErr != nil {
		t.Fatalf("generate key pair: %v", keyErr)
	}
	return testKP
}

func newStore(t *testing.T) (*store.KeyPairFileStore, string) {
	t.Helper()
	home := t.TempDir()
	return store.NewKeyPairFileStore(home, store.WithScryptParams(1<<10, 8, 1)), home
}

func TestKeyPair_SaveLoad_OK(t *testing.T) {
	s, _ := newStore(t)
	var kps domain.KeyPairStore = s
	kp := testKeyPair(t)

	if err := kps.SaveKeyPair("alice", "pass", kp); err != nil {
		t.Fatalf("save key pair: %v", err)
	}
	got, ok, err := kps.LoadKeyPair("alice", "pass")
	if err != nil {
		t.Fatalf("load key pair: %v", err)
	}
	if !ok {
		t.Fatal("expected key pair to exist")
	}
	if got.N.Cmp(kp.N) != 0 || got.E.Cmp(kp.E) != 0 || got.D.Cmp(kp.D) != 0 {
		t.Fatal("mismatch after load")
	}
}

func TestKeyPair_Missing(t *testing.T) {
	s, _ := newStore(t)

	_, ok, err := s.LoadKeyPair("nobody", "pass")
	if err != nil {
		t.Fatalf("load from empty store: %v", err)
	}
	if ok {
		t.Fatal("expected no key pair")
	}
	if has, err := s.HasKeyPair("nobody"); err != nil || has {
		t.Fatalf("Has = %v, %v", has, err)
	}
}

func TestKeyPair_WrongPassphrase_Fails(t *testing.T) {
	s, _ := newStore(t)
	if err := s.SaveKeyPair("alice", "correct", testKeyPair(t)); err != nil {
		t.Fatalf("save key pair: %v", err)
	}
	if _, _, err := s.LoadKeyPair("alice", "wrong"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestKeyPair_MultipleAccounts(t *testing.T) {
	s, _ := newStore(t)
	kp := testKeyPair(t)

	if err := s.SaveKeyPair("alice", "a-pass", kp); err != nil {
		t.Fatalf("save alice: %v", err)
	}
	if err := s.SaveKeyPair("bob", "b-pass", kp); err != nil {
		t.Fatalf("save bob: %v", err)
	}
	if _, ok, err := s.LoadKeyPair("alice", "a-pass"); err != nil || !ok {
		t.Fatalf("load alice: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.LoadKeyPair("bob", "b-pass"); err != nil || !ok {
		t.Fatalf("load bob: ok=%v err=%v", ok, err)
	}
	pub, ok, err := s.PublicKey("bob")
	if err != nil || !ok || !pub.Equal(kp.Public()) {
		t.Fatalf("public key for bob: ok=%v err=%v", ok, err)
	}
}

func TestKeyPair_FileLayout(t *testing.T) {
	s, home := newStore(t)
	kp := testKeyPair(t)
	if err := s.SaveKeyPair("alice", "pass", kp); err != nil {
		t.Fatalf("save key pair: %v", err)
	}

	path := filepath.Join(home, "credentials.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("credentials mode = %o, want 600", perm)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec := doc["alice"]
	var n string
	if err := json.Unmarshal(rec["public.n"], &n); err != nil || n != crypto.EncodeHex(kp.N) {
		t.Fatalf("public.n = %q (%v)", n, err)
	}
	if _, ok := rec["private.d"]; !ok {
		t.Fatal("missing private.d")
	}
	if string(rec["private.d"]) == `"`+crypto.EncodeHex(kp.D)+`"` {
		t.Fatal("private exponent stored in the clear")
	}
}

func TestKeyPair_SealedBlobIsBoundToUsername(t *testing.T) {
	s, home := newStore(t)
	kp := testKeyPair(t)
	if err := s.SaveKeyPair("alice", "pass", kp); err != nil {
		t.Fatalf("save key pair: %v", err)
	}

	path := filepath.Join(home, "credentials.json")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	doc["mallory"] = doc["alice"]
	b, err = json.Marshal(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, err := s.LoadKeyPair("mallory", "pass"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase for a moved blob, got %v", err)
	}
}

func TestKeyPair_RejectsInvalid(t *testing.T) {
	s, _ := newStore(t)
	kp := testKeyPair(t)
	bad := domain.KeyPair{N: kp.N, E: kp.E}
	if err := s.SaveKeyPair("alice", "pass", bad); !errors.Is(err, crypto.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
