//go:build !integration

package i18n

import (
	"testing"
)

func TestTranslator(t *testing.T) {
	contentBytes := []byte("greeting: Вітаємо, %s!\nmain_menu: Головне меню")

	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		got := translator.T("main_menu")
		want := "Головне меню"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		got := translator.T("nonexistent_key")
		want := "nonexistent_key"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		got := translator.T("greeting", "Олена")
		want := "Вітаємо, Олена!"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestEmbeddedLocales(t *testing.T) {
	t.Run("should load the ukrainian locale from the embedded fs", func(t *testing.T) {
		tr, err := NewTranslator(LocalesFS, "uk")
		if err != nil {
			t.Fatalf("NewTranslator failed: %v", err)
		}
		for _, key := range []string{
			"greeting",
			"main_menu",
			"topic.intro",
			"category.youth_policy",
			"category.psychologist_support",
			"category.civic_education",
			"category.legal_support",
		} {
			if tr.T(key) == key {
				t.Errorf("locale is missing key %q", key)
			}
		}
	})
}
