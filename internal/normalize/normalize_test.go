package normalize

import (
	"strings"
	"testing"
)

func TestString_CanonicalForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"whitespace collapse", "  hello \t\n world  ", "hello world"},
		{"smart quotes", "“Fair” use isn’t ‘free’", `"Fair" use isn't 'free'`},
		{"en dash digits", "2019–2024", "2019-2024"},
		{"em dash letters join", "cost—benefit", "costbenefit"},
		{"mojibake apostrophe", "donâ€™t", "don't"},
		{"mojibake em dash", "causeâ€”effect", "causeeffect"},
		{"ligatures", "ﬁnancial eﬃciency", "financial efficiency"},
		{"diacritics", "café naïve", "cafe naive"},
		{"composed diacritics", "Ångström", "Angstrom"},
		{"hyphen wrap with space", "exam- ple", "example"},
		{"hyphen wrap with newline", "exam-\nple", "example"},
		{"tight compound", "well-known", "wellknown"},
		{"digit range keeps hyphen", "2023-2024", "2023-2024"},
		{"camel split", "sentenceEnd Next", "sentence End Next"},
		{"all caps untouched", "USA", "USA"},
		{"space before comma", "Hello ,world", "Hello, world"},
		{"spaces inside brackets", "( inner )", "(inner)"},
		{"numbers keep punctuation", "3.14 and 1,000", "3.14 and 1,000"},
		{"space after period", "end.Next", "end. Next"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.input); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestString_Idempotent(t *testing.T) {
	inputs := []string{
		"  “Smart—quotes”…  donâ€™t worry efﬁ-\ncient 3.14 endOfLine  ",
		"The quick ( brown ) fox ,jumped .Over 12–14 pages",
		"already canonical text. Nothing to do",
		"hyphen- ated and well-known and 2023-2024",
	}
	for _, in := range inputs {
		once := String(in)
		twice := String(once)
		if once != twice {
			t.Errorf("not idempotent:\n input %q\n once  %q\n twice %q", in, once, twice)
		}
	}
}

func TestNewMapping_MatchesString(t *testing.T) {
	inputs := []string{
		"The ﬁnal  report—\nsummary",
		"plain text",
		"  spaced’s “quote”  ",
	}
	for _, in := range inputs {
		m := NewMapping(in)
		if m.Normalized() != String(in) {
			t.Errorf("NewMapping(%q).Normalized() = %q, String = %q", in, m.Normalized(), String(in))
		}
	}
}

func TestMapping_RoundTrip(t *testing.T) {
	orig := "The ﬁnal  report—\nsummary"
	m := NewMapping(orig)

	norm := m.Normalized()
	if norm != "The final reportsummary" {
		t.Fatalf("normalized = %q", norm)
	}

	idx := strings.Index(norm, "final report")
	if idx < 0 {
		t.Fatal("phrase not found in normalized text")
	}
	start, end, ok := m.ToOriginal(idx, idx+len("final report"))
	if !ok {
		t.Fatal("ToOriginal reported out of range")
	}
	if got := String(orig[start:end]); got != norm[idx:idx+len("final report")] {
		t.Errorf("original slice %q normalizes to %q, want %q", orig[start:end], got, "final report")
	}
}

func TestMapping_ToNormalized(t *testing.T) {
	orig := "The ﬁnal  report—\nsummary"
	m := NewMapping(orig)

	if got := m.ToNormalized(0); got != 0 {
		t.Errorf("ToNormalized(0) = %d, want 0", got)
	}
	// Byte 12 is the 'r' of "report"; normalized it sits at index 10.
	if got := m.ToNormalized(12); got != 10 {
		t.Errorf("ToNormalized(12) = %d, want 10", got)
	}
	if got := m.ToNormalized(len(orig) + 10); got != len(m.Normalized()) {
		t.Errorf("ToNormalized past end = %d, want %d", got, len(m.Normalized()))
	}
}

func TestMapping_InsertedRuneAnchors(t *testing.T) {
	m := NewMapping("wordWord")
	if m.Normalized() != "word Word" {
		t.Fatalf("normalized = %q", m.Normalized())
	}

	// The inserted space maps to a zero-width anchor.
	start, end, ok := m.ToOriginal(4, 5)
	if !ok {
		t.Fatal("ToOriginal reported out of range")
	}
	if start != end {
		t.Errorf("inserted rune maps to [%d, %d), want zero width", start, end)
	}

	start, end, ok = m.ToOriginal(0, len(m.Normalized()))
	if !ok || start != 0 || end != len("wordWord") {
		t.Errorf("full span maps to [%d, %d) ok=%v, want [0, 8)", start, end, ok)
	}
}

func TestMapping_ToOriginalOutOfRange(t *testing.T) {
	m := NewMapping("abc")
	if _, _, ok := m.ToOriginal(-1, 2); ok {
		t.Error("negative start accepted")
	}
	if _, _, ok := m.ToOriginal(0, 99); ok {
		t.Error("end past normalized length accepted")
	}
	if _, _, ok := m.ToOriginal(2, 1); ok {
		t.Error("inverted range accepted")
	}
}
