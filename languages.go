package golokal

import (
	"strings"

	"golang.org/x/text/language"
)

// RTLLanguages lists base languages written right-to-left.
var RTLLanguages = map[string]bool{
	"ar":  true,
	"he":  true,
	"fa":  true,
	"ur":  true,
	"yi":  true,
	"ps":  true,
	"sd":  true,
	"ug":  true,
	"dv":  true,
	"ckb": true,
}

// rtlScripts are scripts that force right-to-left regardless of language.
var rtlScripts = map[string]bool{
	"Arab": true,
	"Hebr": true,
	"Thaa": true,
	"Syrc": true,
	"Nkoo": true,
	"Adlm": true,
}

// GetDirection returns "rtl" for right-to-left locales, "ltr" otherwise.
// Accepts BCP 47 tags ("ar-EG", "az-Arab") and underscore forms ("ar_SA").
func GetDirection(locale string) string {
	tag, err := language.Parse(ToHTMLLang(locale))
	if err != nil {
		base := strings.ToLower(strings.Split(NormalizeLocale(locale), "_")[0])
		if RTLLanguages[base] {
			return "rtl"
		}
		return "ltr"
	}

	if script, conf := tag.Script(); conf == language.Exact {
		if rtlScripts[script.String()] {
			return "rtl"
		}
		return "ltr"
	}

	base, _ := tag.Base()
	if RTLLanguages[base.String()] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the locale uses right-to-left text direction.
func IsRTL(locale string) bool {
	return GetDirection(locale) == "rtl"
}

// NormalizeLocale converts a locale code to underscore form (e.g., "es-ES" → "es_ES").
func NormalizeLocale(locale string) string {
	return strings.ReplaceAll(locale, "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "es_ES" → "es-ES").
func ToHTMLLang(locale string) string {
	return strings.ReplaceAll(locale, "_", "-")
}
