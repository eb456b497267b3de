package middleware

import (
	"net/http/httptest"
	"testing"

	"gopkg.in/macaron.v1"
)

func TestPathSlug(t *testing.T) {
	for in, exp := range map[string]string{
		"/":              "root",
		"":               "root",
		"/workers":       "workers",
		"/functions/avg": "functions_name",
		"/a/b/":          "a_b",
	} {
		if got := pathSlug(in); got != exp {
			t.Errorf("pathSlug(%q): expected %q, got %q", in, exp, got)
		}
	}
}

func TestCorsHandler(t *testing.T) {
	m := macaron.New()
	m.Use(CorsHandler([]string{"http://dashboard.local"}))
	m.Get("/", func(ctx *macaron.Context) { ctx.PlainText(200, []byte("OK")) })

	for origin, allowed := range map[string]bool{"http://dashboard.local": true, "http://other.local": false} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, req)
		got := rec.Header().Get("Access-Control-Allow-Origin")
		if allowed && got != origin {
			t.Errorf("origin %s: expected it to be allowed, got %q", origin, got)
		}
		if !allowed && got != "" {
			t.Errorf("origin %s: expected no CORS header, got %q", origin, got)
		}
	}
}
