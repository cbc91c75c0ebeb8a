package middleware

import "testing"

func TestSafeNextPath(t *testing.T) {
	cases := []struct {
		next string
		ok   bool
	}{
		{"/profile/", true},
		{"/profile/edit/", true},
		{"/", true},
		{"", false},
		{"profile", false},
		{"https://evil.example/phish", false},
		{"//evil.example", false},
		{"/\\evil.example", false},
		{"/profile/\r\nSet-Cookie: x", false},
	}

	for _, tc := range cases {
		if got := SafeNextPath(tc.next); got != tc.ok {
			t.Errorf("SafeNextPath(%q) = %v, want %v", tc.next, got, tc.ok)
		}
	}
}
