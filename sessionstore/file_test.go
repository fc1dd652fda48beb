package sessionstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/securecookie"
)

func newTestCodec() *securecookie.SecureCookie {
	sc := securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	sc.MaxLength(0)

	return sc
}

func TestFile_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")
	sc := newTestCodec()

	f, err := NewFile(path, sc)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	if err := f.Set(ctx, "accessToken", "t1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := f.Set(ctx, "userDetails", `{"name":"Ann"}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Reopen from disk with the same keys.
	reopened, err := NewFile(path, sc)
	if err != nil {
		t.Fatalf("NewFile() reopen error = %v", err)
	}

	value, ok, err := reopened.Get(ctx, "accessToken")
	if err != nil || !ok || value != "t1" {
		t.Fatalf("Get() after reopen = (%q, %v, %v), want = (%q, true, nil)", value, ok, err, "t1")
	}
	if value, _, _ := reopened.Get(ctx, "userDetails"); value != `{"name":"Ann"}` {
		t.Fatalf("Get() after reopen = %q, want user record", value)
	}
}

func TestFile_DeleteMultiple(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")
	sc := newTestCodec()

	f, err := NewFile(path, sc)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	for _, key := range []string{"accessToken", "sessionId", "userDetails", "scopes"} {
		if err := f.Set(ctx, key, "x"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if err := f.Delete(ctx, "accessToken", "sessionId", "userDetails", "scopes"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	reopened, err := NewFile(path, sc)
	if err != nil {
		t.Fatalf("NewFile() reopen error = %v", err)
	}
	for _, key := range []string{"accessToken", "sessionId", "userDetails", "scopes"} {
		if _, ok, _ := reopened.Get(ctx, key); ok {
			t.Errorf("Get(%q) ok = true after delete", key)
		}
	}
}

func TestFile_UnsealableFileTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	if err := os.WriteFile(path, []byte("sealed with a rotated key"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	f, err := NewFile(path, newTestCodec())
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if _, ok, _ := f.Get(ctx, "accessToken"); ok {
		t.Error("Get() ok = true from unsealable file")
	}
}
