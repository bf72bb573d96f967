package main

import "testing"

func TestSearchTermKeepsEveryWord(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"dragon"}, "dragon"},
		{[]string{"old", "dragon"}, "old dragon"},
		{[]string{"old dragon", "lair"}, "old dragon lair"},
	}

	for _, tc := range cases {
		if got := searchTerm(tc.args); got != tc.want {
			t.Fatalf("searchTerm(%q) = %q, expected %q", tc.args, got, tc.want)
		}
	}
}
