package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPutAndGetValue(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := PutValue(ctx, db, "host:example.com", []byte(`{"ipv4_enabled":true}`)); err != nil {
		t.Fatalf("PutValue failed: %v", err)
	}

	got, err := GetValue(ctx, db, "host:example.com")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if string(got) != `{"ipv4_enabled":true}` {
		t.Errorf("GetValue = %q", got)
	}

	if err := PutValue(ctx, db, "host:example.com", []byte(`{}`)); err != nil {
		t.Fatalf("PutValue (overwrite) failed: %v", err)
	}
	got, _ = GetValue(ctx, db, "host:example.com")
	if string(got) != `{}` {
		t.Errorf("GetValue after overwrite = %q, want {}", got)
	}
}

func TestGetValueMissing(t *testing.T) {
	db := openTestDB(t)

	got, err := GetValue(context.Background(), db, "host:missing")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing key, got %q", got)
	}
}

func TestDeleteValue(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_ = PutValue(ctx, db, "token:abc", []byte(`{}`))
	if err := DeleteValue(ctx, db, "token:abc"); err != nil {
		t.Fatalf("DeleteValue failed: %v", err)
	}
	if err := DeleteValue(ctx, db, "token:abc"); err != nil {
		t.Fatalf("DeleteValue of missing key failed: %v", err)
	}

	got, _ := GetValue(ctx, db, "token:abc")
	if got != nil {
		t.Errorf("expected key to be deleted, got %q", got)
	}
}

func TestListKeysByPrefix(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, k := range []string{"host:b.example", "host-ipv4:a.example", "host:a.example", "token:x", "host:100%_weird"} {
		if err := PutValue(ctx, db, k, []byte(`{}`)); err != nil {
			t.Fatalf("PutValue(%q) failed: %v", k, err)
		}
	}

	got, err := ListKeys(ctx, db, "host:")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	want := []string{"host:100%_weird", "host:a.example", "host:b.example"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListKeys = %v, want %v", got, want)
	}

	got, _ = ListKeys(ctx, db, "nothing:")
	if len(got) != 0 {
		t.Errorf("expected no keys, got %v", got)
	}
}
