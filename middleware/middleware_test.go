package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestCallerOriginMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(CallerOriginMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CallerOrigin(c))
	})

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": " 198.51.100.4 , 10.0.0.1", "X-Real-IP": "203.0.113.1"}, "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.1", "CF-Connecting-IP": "192.0.2.1"}, "203.0.113.1"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "192.0.2.1"}, "192.0.2.1"},
		{"none", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(body) != tc.want {
				t.Fatalf("origin = %q, want %q", body, tc.want)
			}
		})
	}
}

func TestOperatorAuthMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(OperatorAuthMiddleware("s3cret"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	cases := []struct {
		header string
		want   int
	}{
		{"", fiber.StatusUnauthorized},
		{"Bearer wrong", fiber.StatusUnauthorized},
		{"Bearer s3cret", fiber.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("Authorization %q: status %d, want %d", tc.header, resp.StatusCode, tc.want)
		}
	}
}

func TestRequestFingerprint(t *testing.T) {
	a := requestFingerprint("POST", "/api/gifts/create", []byte(`{"amountUsd":25}`))
	if a != requestFingerprint("POST", "/api/gifts/create", []byte(`{"amountUsd":25}`)) {
		t.Fatal("fingerprint must be stable")
	}
	if a == requestFingerprint("POST", "/api/gifts/create", []byte(`{"amountUsd":26}`)) {
		t.Fatal("fingerprint must depend on the body")
	}
	if a == requestFingerprint("POST", "/api/gifts/redeem", []byte(`{"amountUsd":25}`)) {
		t.Fatal("fingerprint must depend on the path")
	}
}
