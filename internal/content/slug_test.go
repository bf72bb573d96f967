package content

import (
	"errors"
	"testing"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Hello World":                  "hello-world",
		"  Session 3:  Into the Mire ": "session-3-into-the-mire",
		"Crème brûlée":                 "crme-brle",
		"already-slugged":              "already-slugged",
	}

	for input, expected := range cases {
		if got := Slugify(input); got != expected {
			t.Fatalf("Slugify(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func TestParseContentType(t *testing.T) {
	t.Parallel()

	parsed, err := ParseContentType(" Miniature ")
	if err != nil {
		t.Fatalf("ParseContentType returned error: %v", err)
	}
	if parsed != TypeMiniature {
		t.Fatalf("expected miniature, got %q", parsed)
	}

	if _, err := ParseContentType("poem"); !errors.Is(err, ErrInvalidContentType) {
		t.Fatalf("expected ErrInvalidContentType, got %v", err)
	}
}
