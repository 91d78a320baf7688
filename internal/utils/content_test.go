package utils

import "testing"

func TestStripWrappingQuotes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"Believe it!"`, "Believe it!"},
		{`'Hmph.'`, "Hmph."},
		{`  "spaced"  `, "spaced"},
		{`no quotes here`, "no quotes here"},
		{`"only one layer""`, `only one layer"`},
		{`""`, ""},
		{`"`, `"`},
	}
	for _, tc := range cases {
		if got := StripWrappingQuotes(tc.in); got != tc.want {
			t.Fatalf("StripWrappingQuotes(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	raw := "Here you go:\n```json\n{\"target_type\":\"group\"}\n```"
	if got := ExtractJSONObject(raw); got != `{"target_type":"group"}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONObjectNoBraces(t *testing.T) {
	if got := ExtractJSONObject("  nothing structured  "); got != "nothing structured" {
		t.Fatalf("expected trimmed passthrough, got %q", got)
	}
}
