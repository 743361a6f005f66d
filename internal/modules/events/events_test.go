package events

import (
	"net/http"
	"testing"
)

func TestResourceFor(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/v1/announcements", "announcements"},
		{"/api/v1/announcements/abc-123", "announcements"},
		{"/api/v1/orders/abc/reject", "orders"},
		{"/api/v1/auth/login", ""},
		{"/api/v1/files/presign", ""},
		{"/api/v1", ""},
		{"/healthz", ""},
	}
	for _, c := range cases {
		if got := resourceFor(c.path, "/api/v1"); got != c.want {
			t.Errorf("resourceFor(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestActionFor(t *testing.T) {
	cases := map[string]string{
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
		http.MethodGet:    "",
		http.MethodHead:   "",
	}
	for method, want := range cases {
		if got := actionFor(method); got != want {
			t.Errorf("actionFor(%s) = %q, want %q", method, got, want)
		}
	}
}
