package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Atomic Habits", "atomic-habits"},
		{"  The  7   Habits  ", "the-7-habits"},
		{"Crème Brûlée für Anfänger", "creme-brulee-fur-anfanger"},
		{"Hello, World! (2nd Edition)", "hello-world-2nd-edition"},
		{"AC/DC", "ac-dc"},
		{"Rock & Roll", "rock-roll"},
		{"---", ""},
		{"", ""},
		{"ALL CAPS", "all-caps"},
	}

	for _, tc := range cases {
		if got := Make(tc.in); got != tc.want {
			t.Errorf("Make(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
