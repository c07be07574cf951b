package capability

import (
	"encoding/json"
	"testing"
)

func restricted(hosts map[string][]Permission) *Token {
	return New("id", Info{Type: Restricted, Permissions: &Permissions{Hosts: hosts}})
}

func TestAdminBypassesPermissions(t *testing.T) {
	tok := New("id", Info{Type: Admin})

	if !tok.IsAdmin() {
		t.Fatal("expected admin")
	}
	if !tok.CanView("anything.example.com") || !tok.CanUpdate("anything.example.com") {
		t.Error("admin should view and update every host")
	}
}

func TestRestrictedPermissions(t *testing.T) {
	tok := restricted(map[string][]Permission{
		"example.com":  {PermView},
		"home.example": {PermView, PermUpdate},
	})

	tests := []struct {
		host       string
		wantView   bool
		wantUpdate bool
	}{
		{"example.com", true, false},
		{"home.example", true, true},
		{"other.example", false, false},
	}

	for _, tt := range tests {
		if got := tok.CanView(tt.host); got != tt.wantView {
			t.Errorf("CanView(%q) = %v, want %v", tt.host, got, tt.wantView)
		}
		if got := tok.CanUpdate(tt.host); got != tt.wantUpdate {
			t.Errorf("CanUpdate(%q) = %v, want %v", tt.host, got, tt.wantUpdate)
		}
	}
	if tok.IsAdmin() {
		t.Error("restricted token reported admin")
	}
}

func TestOthersWildcard(t *testing.T) {
	tok := restricted(map[string][]Permission{
		"locked.example": {},
		Others:           {PermView},
	})

	if !tok.CanView("random.example") {
		t.Error("#OTHERS should grant view to unlisted hosts")
	}
	if tok.CanUpdate("random.example") {
		t.Error("#OTHERS does not grant update")
	}
	if tok.CanView("locked.example") {
		t.Error("an explicit entry takes precedence over #OTHERS")
	}
}

func TestRestrictedWithoutPermissionsDenies(t *testing.T) {
	tok := New("id", Info{Type: Restricted})
	if tok.CanView("example.com") || tok.CanUpdate("example.com") {
		t.Error("restricted token without permissions should deny")
	}
}

func TestInfoSerialization(t *testing.T) {
	name := "laptop"
	tok := &Token{
		ID:              "id",
		Type:            Restricted,
		Name:            &name,
		HostPermissions: map[string][]Permission{"example.com": {PermUpdate}},
	}

	b, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"RESTRICTED","name":"laptop","description":null,"permissions":{"hosts":{"example.com":["update"]}}}`
	if string(b) != want {
		t.Errorf("json = %s\nwant  %s", b, want)
	}

	admin := &Token{ID: "a", Type: Admin, HostPermissions: map[string][]Permission{"x": {PermView}}}
	b, _ = json.Marshal(admin)
	if want := `{"type":"ADMIN","name":null,"description":null}`; string(b) != want {
		t.Errorf("admin json = %s, want %s", b, want)
	}
}

func TestFromInfo(t *testing.T) {
	var info map[string]any
	raw := `{"type":"RESTRICTED","name":"","description":"home router","permissions":{"hosts":{"h.example":["view","update"]}}}`
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tok, err := FromInfo("abc", info)
	if err != nil {
		t.Fatalf("FromInfo failed: %v", err)
	}
	if tok.ID != "abc" || tok.Type != Restricted {
		t.Errorf("unexpected token %+v", tok)
	}
	if tok.Name != nil {
		t.Errorf("empty name should normalize to nil, got %q", *tok.Name)
	}
	if tok.Description == nil || *tok.Description != "home router" {
		t.Errorf("description = %v", tok.Description)
	}
	if !tok.CanUpdate("h.example") {
		t.Error("expected update permission on h.example")
	}
}
