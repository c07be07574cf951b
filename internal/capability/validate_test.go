package capability

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var info map[string]any
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return info
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantFields []string
	}{
		{"admin minimal", `{"type":"ADMIN"}`, nil},
		{"restricted full", `{"type":"RESTRICTED","name":"n","description":null,"permissions":{"hosts":{"a":["view","update"],"#OTHERS":[]}}}`, nil},
		{"permissions without hosts", `{"type":"RESTRICTED","permissions":{}}`, nil},
		{"missing type", `{}`, []string{"type"}},
		{"lowercase type", `{"type":"admin"}`, []string{"type"}},
		{"numeric name", `{"type":"ADMIN","name":3}`, []string{"name"}},
		{"object description", `{"type":"ADMIN","description":{}}`, []string{"description"}},
		{"permissions not object", `{"type":"RESTRICTED","permissions":[]}`, []string{"permissions"}},
		{"permissions null", `{"type":"RESTRICTED","permissions":null}`, []string{"permissions"}},
		{"hosts not object", `{"type":"RESTRICTED","permissions":{"hosts":"all"}}`, []string{"permissions.hosts"}},
		{"invalid permission", `{"type":"RESTRICTED","permissions":{"hosts":{"foo":["read"]}}}`, []string{"permissions.hosts[foo]"}},
		{"host entry not list", `{"type":"RESTRICTED","permissions":{"hosts":{"foo":"view"}}}`, []string{"permissions.hosts[foo]"}},
		{"non string permission", `{"type":"RESTRICTED","permissions":{"hosts":{"foo":[1]}}}`, []string{"permissions.hosts[foo]"}},
		{"several problems", `{"type":"X","name":1,"permissions":{"hosts":{"a":["read"],"b":["write"]}}}`,
			[]string{"type", "name", "permissions.hosts[a]", "permissions.hosts[b]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(decode(t, tt.raw))
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("got %d errors (%v), want %d", len(errs), errs, len(tt.wantFields))
			}
			for i, field := range tt.wantFields {
				if errs[i].Field != field {
					t.Errorf("error %d field = %q, want %q", i, errs[i].Field, field)
				}
			}
		})
	}
}

func TestValidateInvalidPermissionMessage(t *testing.T) {
	errs := Validate(decode(t, `{"type":"RESTRICTED","permissions":{"hosts":{"foo":["read"]}}}`))
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if want := `"read" is not a valid permission.`; errs[0].Message != want {
		t.Errorf("message = %q, want %q", errs[0].Message, want)
	}
}
