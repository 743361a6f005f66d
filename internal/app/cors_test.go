package app

import "testing"

func TestMatchOriginPattern(t *testing.T) {
	cases := []struct {
		pattern string
		host    string
		want    bool
	}{
		{"studio.example.com", "studio.example.com", true},
		{"studio.example.com", "evil.example.com", false},
		{"*.example.com", "admin.example.com", true},
		{"*.example.com", "example.org", false},
		{"localhost:*", "localhost:5173", true},
		{"localhost:*", "localhost.evil.com", false},
	}
	for _, c := range cases {
		if got := matchOriginPattern(c.pattern, c.host); got != c.want {
			t.Errorf("matchOriginPattern(%q, %q) = %v, want %v", c.pattern, c.host, got, c.want)
		}
	}
}

func TestExtractOriginHost(t *testing.T) {
	if got := extractOriginHost("https://admin.example.com:8443"); got != "admin.example.com:8443" {
		t.Errorf("got %q", got)
	}
	if got := extractOriginHost("not-a-url"); got != "not-a-url" {
		t.Errorf("got %q", got)
	}
}
