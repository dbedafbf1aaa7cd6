package utils

import "testing"

func TestFirstOrigin(t *testing.T) {
	cases := []struct {
		name                  string
		forwarded, realIP, cf string
		want                  string
	}{
		{"forwarded first hop", " 203.0.113.7 , 10.0.0.1", "198.51.100.1", "", "203.0.113.7"},
		{"real ip fallback", "", " 198.51.100.1 ", "203.0.113.9", "198.51.100.1"},
		{"cloudflare fallback", "", "", "203.0.113.9", "203.0.113.9"},
		{"empty forwarded entry", " ,203.0.113.7", "198.51.100.1", "", "198.51.100.1"},
		{"nothing", "", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FirstOrigin(tc.forwarded, tc.realIP, tc.cf); got != tc.want {
				t.Fatalf("FirstOrigin = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPublicOrigin(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"203.0.113.7", "203.0.113.7"},
		{"2001:db8::1", "2001:db8::1"},
		{"172.17.0.4", "172.17.0.4"},
		{"127.0.0.1", ""},
		{"::1", ""},
		{"localhost", ""},
		{"192.168.1.20", ""},
		{"10.1.2.3", ""},
		{"172.16.5.5", ""},
		{"", ""},
		{"not-an-ip", ""},
	}
	for _, tc := range cases {
		if got := PublicOrigin(tc.in); got != tc.want {
			t.Fatalf("PublicOrigin(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
