package golokal

import "testing"

func TestGetDirection(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"en", "ltr"},
		{"en-US", "ltr"},
		{"fr_FR", "ltr"},
		{"ar", "rtl"},
		{"ar_SA", "rtl"},
		{"ar-EG", "rtl"},
		{"he", "rtl"},
		{"fa-IR", "rtl"},
		{"ur", "rtl"},
		{"AR", "rtl"},
		{"az-Arab", "rtl"},
		{"ku-Arab-IQ", "rtl"},
		{"ar-Latn", "ltr"},
		{"zh-Hant-TW", "ltr"},
		{"not a locale!", "ltr"},
		{"", "ltr"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := GetDirection(tt.locale); got != tt.want {
				t.Errorf("GetDirection(%q) = %q, want %q", tt.locale, got, tt.want)
			}
		})
	}
}

func TestIsRTL(t *testing.T) {
	if !IsRTL("he_IL") {
		t.Error("he_IL should be RTL")
	}
	if IsRTL("de") {
		t.Error("de should not be RTL")
	}
}

func TestNormalizeLocale(t *testing.T) {
	if got := NormalizeLocale("es-ES"); got != "es_ES" {
		t.Errorf("NormalizeLocale = %q", got)
	}
	if got := ToHTMLLang("es_ES"); got != "es-ES" {
		t.Errorf("ToHTMLLang = %q", got)
	}
}
