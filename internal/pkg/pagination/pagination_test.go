package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestFromContext(t *testing.T) {
	cases := []struct {
		query string
		want  Query
	}{
		{"", Query{Page: 1, Size: 10, Skip: 0}},
		{"page=3&size=25", Query{Page: 3, Size: 25, Skip: 50}},
		{"page=0&size=-1", Query{Page: 1, Size: 10, Skip: 0}},
		{"page=abc&size=xyz", Query{Page: 1, Size: 10, Skip: 0}},
		{"size=9999", Query{Page: 1, Size: MaxSize, Skip: 0}},
	}
	for _, c := range cases {
		if got := FromContext(queryContext(t, c.query)); got != c.want {
			t.Errorf("FromContext(%q) = %+v, want %+v", c.query, got, c.want)
		}
	}
}

func TestFromLimitSkip(t *testing.T) {
	cases := []struct {
		query string
		want  Query
	}{
		{"", Query{Page: 1, Size: 20, Skip: 0}},
		{"limit=10&skip=0", Query{Page: 1, Size: 10, Skip: 0}},
		{"limit=10&skip=30", Query{Page: 4, Size: 10, Skip: 30}},
		{"limit=10&skip=35", Query{Page: 4, Size: 10, Skip: 35}}, // partial skip kept exactly
		{"limit=20&skip=10", Query{Page: 1, Size: 20, Skip: 10}},
		{"limit=0&skip=-5", Query{Page: 1, Size: 20, Skip: 0}},
		{"limit=500", Query{Page: 1, Size: MaxSize, Skip: 0}},
	}
	for _, c := range cases {
		if got := FromLimitSkip(queryContext(t, c.query)); got != c.want {
			t.Errorf("FromLimitSkip(%q) = %+v, want %+v", c.query, got, c.want)
		}
	}
}

func TestOffset(t *testing.T) {
	if got := FromContext(queryContext(t, "page=4&size=10")).Offset(); got != 30 {
		t.Errorf("page offset = %d, want 30", got)
	}
	if got := FromLimitSkip(queryContext(t, "limit=20&skip=10")).Offset(); got != 10 {
		t.Errorf("skip offset = %d, want 10", got)
	}
	if got := FromLimitSkip(queryContext(t, "limit=10&skip=35")).Offset(); got != 35 {
		t.Errorf("skip offset = %d, want 35", got)
	}
}
