package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsSensitiveKeys(t *testing.T) {
	cases := []struct {
		key  string
		val  interface{}
		want interface{}
	}{
		{"access_token", "abc", "[REDACTED]"},
		{"password", "hunter2", "[REDACTED]"},
		{"email", "a@b.test", "[REDACTED]"},
		{"jwt_secret", "s", "[REDACTED]"},
		{"company_id", 7, 7},
		{"filename", "import0_1.xml", "import0_1.xml"},
	}
	for _, tc := range cases {
		if got := sanitizeValue(tc.key, tc.val); got != tc.want {
			t.Errorf("sanitizeValue(%q, %v) = %v, want %v", tc.key, tc.val, got, tc.want)
		}
	}
}

func TestSanitizeValueHashesUserID(t *testing.T) {
	got := sanitizeValue("user_id", "8c3f9a2e-0000-0000-0000-000000000000")
	s, ok := got.(string)
	if !ok || !strings.HasPrefix(s, "hash:") {
		t.Errorf("sanitizeValue(user_id) = %v, want hash: prefix", got)
	}
}

func TestLooksLikeJWT(t *testing.T) {
	jwt := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature"
	if !looksLikeJWT(jwt) {
		t.Error("three-part token not detected")
	}
	if looksLikeJWT("import0_1.xml") {
		t.Error("plain filename misdetected as token")
	}
	if looksLikeJWT("a.b.c") {
		t.Error("short segments misdetected as token")
	}
}
