package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "called patient, left voicemail", "called patient, left voicemail"},
		{"tags stripped", "<b>urgent</b> follow-up", "urgent follow-up"},
		{"entity-encoded tag stripped", "&lt;script&gt;alert(1)&lt;/script&gt;note", "note"},
		{"whitespace trimmed", "  spaced  ", "spaced"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.in); got != tc.want {
				t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("nil input must stay nil")
	}
	in := "<i>ok</i>"
	if got := TextPtr(&in); got == nil || *got != "ok" {
		t.Fatalf("TextPtr = %v, want ok", got)
	}
}
