package query

import "testing"

func TestLowerFirst(t *testing.T) {
	cases := map[string]string{
		"Character": "character",
		"User":      "user",
		"":          "",
	}
	for in, want := range cases {
		if got := lowerFirst(in); got != want {
			t.Errorf("lowerFirst(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPluralize(t *testing.T) {
	cases := map[string]string{
		"character": "characters",
		"category":  "categories",
		"bus":       "buses",
		"box":       "boxes",
		"church":    "churches",
		"dish":      "dishes",
		"day":       "days",
	}
	for in, want := range cases {
		if got := pluralize(in); got != want {
			t.Errorf("pluralize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"createdAt": "CREATED_AT",
		"id":        "ID",
		"name":      "NAME",
	}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
