package auth

import (
	"encoding/hex"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}

	if len(key) != 2*secretBytes {
		t.Errorf("key length = %d, want %d", len(key), 2*secretBytes)
	}
	if _, err := hex.DecodeString(key); err != nil {
		t.Errorf("key is not hex: %v", err)
	}

	other, _ := GenerateAPIKey()
	if key == other {
		t.Error("two generated keys are equal")
	}
}

func TestTokenIDDeterministic(t *testing.T) {
	id1 := TokenID("secret-key", "salt")
	id2 := TokenID("secret-key", "salt")
	if id1 != id2 {
		t.Error("TokenID is not deterministic")
	}

	if TokenID("secret-key", "other-salt") == id1 {
		t.Error("TokenID should depend on the salt")
	}
	if TokenID("other-key", "salt") == id1 {
		t.Error("TokenID should depend on the key")
	}
}

func TestTokenIDEncoding(t *testing.T) {
	id := TokenID("k", "s")

	// 32 byte digest, unpadded base64url
	if len(id) != 43 {
		t.Errorf("id length = %d, want 43", len(id))
	}
	for _, c := range id {
		if c == '+' || c == '/' || c == '=' {
			t.Errorf("id contains non url-safe character %q", c)
		}
	}
}

func TestGenerateSaltedKey(t *testing.T) {
	sk, err := GenerateSaltedKey()
	if err != nil {
		t.Fatalf("GenerateSaltedKey failed: %v", err)
	}
	if sk.Salt == "" || sk.APIKey == "" {
		t.Fatal("empty salt or key")
	}
	if sk.TokenID != TokenID(sk.APIKey, sk.Salt) {
		t.Error("TokenID does not match key and salt")
	}
}

func TestParseBearer(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc123", "abc123", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
		{"Basic abc123", "", true},
		{"bearer abc123", "", true},
		{"Bearer abc 123", "", true},
	}

	for _, tt := range tests {
		got, err := ParseBearer(tt.header)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBearer(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBearer(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
