package provider

import "testing"

func TestInZone(t *testing.T) {
	tests := []struct {
		zone string
		name string
		want bool
	}{
		{"example.com", "example.com", true},
		{"example.com.", "home.example.com", true},
		{"example.com", "a.b.example.com.", true},
		{"example.com", "HOME.Example.Com", true},
		{"example.com", "evilexample.com", false},
		{"example.com", "other.org", false},
		{"example.com", "com", false},
		{"", "home.example.com", false},
		{"example.com", "", false},
	}

	for _, tt := range tests {
		if got := InZone(tt.zone, tt.name); got != tt.want {
			t.Errorf("InZone(%q, %q) = %v, want %v", tt.zone, tt.name, got, tt.want)
		}
	}
}
