package i18n

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"de", "de"},
		{"DE", "de"},
		{"de-AT", "de"},
		{"pt_BR", "pt"},
		{"xx", "en"},
		{"", "en"},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTFallsBackToEnglish(t *testing.T) {
	// research_running only exists in the English table.
	if got := T("de", "research_running"); got == "" || got == "research_running" {
		t.Fatalf("T(de, research_running) = %q, want english text", got)
	}

	if got := T("de", "no_such_key"); got != "no_such_key" {
		t.Fatalf("T(de, no_such_key) = %q, want key echoed back", got)
	}
}

func TestIsSupported(t *testing.T) {
	for _, code := range []string{"en", "DE", "de-AT", "pt_BR"} {
		if !IsSupported(code) {
			t.Errorf("IsSupported(%q) = false", code)
		}
	}
	for _, code := range []string{"xx", "", "klingon"} {
		if IsSupported(code) {
			t.Errorf("IsSupported(%q) = true", code)
		}
	}
}

func TestSupportedContainsDefault(t *testing.T) {
	if !IsSupported(DefaultLanguage) {
		t.Fatalf("default language %q not supported", DefaultLanguage)
	}

	for _, loc := range Supported() {
		if loc.Code == "" || loc.Label == "" {
			t.Fatalf("locale with empty code or label: %+v", loc)
		}
		if EnglishName(loc.Code) == "" {
			t.Fatalf("no english name for %q", loc.Code)
		}
	}
}
