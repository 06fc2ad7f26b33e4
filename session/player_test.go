package session

import "testing"

func TestValidatePlayerName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		ok   bool
	}{
		{"simple ascii", "alice", true},
		{"max length", stringOfLen(32), true},
		{"too long", stringOfLen(33), false},
		{"empty", "", false},
		{"leading space", " alice", false},
		{"trailing space", "alice ", false},
		{"multibyte within limit", "蛇使い", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, ok := validatePlayerName(c.in)
			if ok != c.ok {
				t.Errorf("validatePlayerName(%q) ok = %v, want %v", c.in, ok, c.ok)
			}
		})
	}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
