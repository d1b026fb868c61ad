package subject

import (
	"reflect"
	"testing"
)

func TestShortCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"nlk:KSH0000001234", "KSH0000001234"},
		{"nlk:ksh2005014167", "KSH2005014167"},
		{"KSH1999000001", "KSH1999000001"},
		{"nlk:ABC123", "ABC123"},
		{"ns:x-AB12", "AB12"}, // code token extracted from a composite local part
		{"nlk:no-digits", "no-digits"}, // no code token, verbatim local part
		{"http://lod.nl.go.kr/resource:KSH42", "KSH42"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ShortCode(tt.in); got != tt.want {
			t.Errorf("ShortCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	got := Format("한국", "nlk:KSH0000001234")
	want := "▼a한국▼0KSH0000001234▲"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestLabels(t *testing.T) {
	got := Labels("▼a건강관리▼0KSH1▲; ▼a러닝▼0KSH2▲")
	want := []string{"건강관리", "러닝"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Labels = %v, want %v", got, want)
	}
	if Labels("plain text") != nil {
		t.Error("Labels should return nil for unmarked text")
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"눈 (snow)", "눈"},
		{"눈 (snow)[雪]@ko", "눈"},
		{"internet@en", "internet"},
		{"한국", "한국"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLinkURL(t *testing.T) {
	got := LinkURL("nlk:KSH0000001234")
	want := "https://lod.nl.go.kr/page/concept/KSH0000001234"
	if got != want {
		t.Errorf("LinkURL = %q, want %q", got, want)
	}
	if LinkURL("") != "" {
		t.Error("LinkURL on empty id should be empty")
	}
}

func TestQualifiers(t *testing.T) {
	paren, bracket := Qualifiers("눈 (snow)[雪]")
	if paren != "snow" || bracket != "雪" {
		t.Errorf("Qualifiers = (%q, %q)", paren, bracket)
	}
	paren, bracket = Qualifiers("한국")
	if paren != "" || bracket != "" {
		t.Errorf("Qualifiers on bare text = (%q, %q)", paren, bracket)
	}
}
