package plug

import (
	"reflect"
	"testing"
)

func TestParseCookieDropsAttributes(t *testing.T) {
	got := ParseCookie("session=abc123; user_id=42; Path=/; Domain=example.com; Secure; HttpOnly").ToMap()
	want := map[string]string{"session": "abc123", "user_id": "42"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseCookie = %v, want %v", got, want)
	}
}

func TestParseCookieEdgeCases(t *testing.T) {
	got := ParseCookie(` a = 1 ;;=x; novalue; b="q;`).ToMap()
	want := map[string]string{"a": "1", "b": `"q`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseCookie = %v, want %v", got, want)
	}
}

func TestGetQueryFromTarget(t *testing.T) {
	cases := map[string]string{
		"test.com?test=quest#dest": "test=quest",
		"https://x.com/a/b/":       "",
		"/p?a=1&b=2":               "a=1&b=2",
		"/p?":                      "",
		"/p#frag":                  "",
	}
	for in, want := range cases {
		if got := GetQueryFromTarget(in); got != want {
			t.Fatalf("GetQueryFromTarget(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetPortFromHost(t *testing.T) {
	cases := []struct {
		host string
		port int
		ok   bool
	}{
		{"example.com:8080", 8080, true},
		{"api.example.com", 443, true},
		{"localhost", 80, true},
		{"localhost:3000", 3000, true},
		{"[::1]:9000", 9000, true},
		{"192.168.1.1:5432", 5432, true},
		{"not a host", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		port, ok := GetPortFromHost(tc.host)
		if port != tc.port || ok != tc.ok {
			t.Fatalf("GetPortFromHost(%q) = %d,%v want %d,%v", tc.host, port, ok, tc.port, tc.ok)
		}
	}
}

func TestBuildPathInfo(t *testing.T) {
	if got := BuildPathInfo("//users/123/"); !reflect.DeepEqual(got, []string{"users", "123"}) {
		t.Fatalf("BuildPathInfo = %v", got)
	}
	if got := BuildPathInfo("/"); len(got) != 0 {
		t.Fatalf("BuildPathInfo(/) = %v", got)
	}
}
