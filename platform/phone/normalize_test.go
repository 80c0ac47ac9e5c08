package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"already E.164", "+8613800138000", "+8613800138000"},
		{"bare national number", "13800138000", "+8613800138000"},
		{"spaced national number", "138 0013 8000", "+8613800138000"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"unparseable stays opaque", "not-a-number", "not-a-number"},
		{"invalid number stays opaque", "123", "123"},
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.input); got != tc.want {
			t.Fatalf("%s: NormalizeE164(%q) = %q, want %q", tc.name, tc.input, got, tc.want)
		}
	}
}

func TestNormalizeE164_EquivalentFormsCollide(t *testing.T) {
	forms := []string{"+8613800138000", "13800138000", "138-0013-8000", "+86 138 0013 8000"}
	for _, form := range forms {
		if got := NormalizeE164(form); got != "+8613800138000" {
			t.Fatalf("form %q normalized to %q", form, got)
		}
	}
}
