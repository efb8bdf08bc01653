package i18n

import (
	"strings"
	"testing"
)

func TestEveryLocaleHasEnglishKeys(t *testing.T) {
	en := builtin[Fallback]
	for _, l := range builtinOrder {
		for k := range builtin[l] {
			if _, ok := en[k]; !ok {
				t.Fatalf("%s defines %q which English lacks", l, k)
			}
		}
	}
}

func TestFallbackChain(t *testing.T) {
	c := New("ru")
	if got := c.T("he", KeyAskName); got != builtin["he"][KeyAskName] {
		t.Fatalf("he lookup = %q", got)
	}
	// Missing in he and ru, present in en.
	if got := c.T("he", KeyOrderTitle); got != "🚖 NEW ORDER" {
		t.Fatalf("fallback = %q", got)
	}
	if got := c.T("xx", KeyAskName); got != builtin["ru"][KeyAskName] {
		t.Fatalf("unknown locale should use catalog default, got %q", got)
	}
	if got := c.T("en", "no_such_key"); got != "no_such_key" {
		t.Fatalf("missing key = %q", got)
	}
}

func TestFormatArgs(t *testing.T) {
	c := New("en")
	if got := c.T("en", KeyFieldName, "Alex"); got != "👤 Name: Alex" {
		t.Fatalf("got %q", got)
	}
	if got := c.T("en-US", KeyDriverWelcome, int64(77)); !strings.Contains(got, "`77`") {
		t.Fatalf("got %q", got)
	}
}

func TestMatchAndLocales(t *testing.T) {
	c := New("fr", "he", "en", "de")
	if c.Default() != "en" {
		t.Fatalf("default = %q", c.Default())
	}
	if got := c.Locales(); strings.Join(got, ",") != "he,en" {
		t.Fatalf("locales = %v", got)
	}
	if l, ok := c.Match(KeyLangLabel, " 🇮🇱 עברית "); !ok || l != "he" {
		t.Fatalf("match = %q %v", l, ok)
	}
	if _, ok := c.Match(KeyLangLabel, "🇷🇺 Русский"); ok {
		t.Fatal("disabled locale must not match")
	}
	if !c.Has("EN_gb") || c.Has("ru") {
		t.Fatal("Has mismatch")
	}
}
