package golokal

import (
	"strings"
	"testing"
)

func TestHashTranslations_OrderIndependent(t *testing.T) {
	a := TranslationMap{"x": "1", "y": "2", "z": "3"}
	b := TranslationMap{"z": "3", "x": "1", "y": "2"}

	if HashTranslations(a) != HashTranslations(b) {
		t.Error("equal maps should hash equally")
	}
	if len(HashTranslations(a)) != 64 {
		t.Errorf("expected hex SHA-256, got %q", HashTranslations(a))
	}
}

func TestHashTranslations_Distinguishes(t *testing.T) {
	tests := []struct {
		name string
		a, b TranslationMap
	}{
		{"value change", TranslationMap{"k": "v1"}, TranslationMap{"k": "v2"}},
		{"key change", TranslationMap{"k1": "v"}, TranslationMap{"k2": "v"}},
		{"boundary shift", TranslationMap{"ab": "c"}, TranslationMap{"a": "bc"}},
		{"empty vs one", TranslationMap{}, TranslationMap{"": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if HashTranslations(tt.a) == HashTranslations(tt.b) {
				t.Error("different maps hashed equally")
			}
		})
	}
}

func TestContentETag(t *testing.T) {
	etag := ContentETag(TranslationMap{"a": "b"})

	if !strings.HasPrefix(etag, `"`) || !strings.HasSuffix(etag, `"`) {
		t.Errorf("ETag should be quoted, got %s", etag)
	}
	if len(etag) != 18 {
		t.Errorf("expected 16 hex chars in quotes, got %s", etag)
	}
	if etag != ContentETag(TranslationMap{"a": "b"}) {
		t.Error("ETag is not deterministic")
	}
}
