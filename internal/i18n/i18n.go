// Package i18n maps (locale, key) to user-facing text templates.
//
// Tables are static. Lookups fall back to the catalog default locale, then
// to English, then to the key itself, so a missing translation never
// breaks a conversation.
package i18n

import (
	"fmt"
	"strings"
)

const Fallback = "en"

type Catalog struct {
	def    string
	order  []string
	tables map[string]map[string]string
}

// New returns the built-in catalog restricted to the given locales (all
// built-in locales when empty). Unknown locales are skipped. def falls back
// to English when it is not one of the enabled locales.
func New(def string, enabled ...string) *Catalog {
	c := &Catalog{tables: map[string]map[string]string{}}
	if len(enabled) == 0 {
		enabled = builtinOrder
	}
	for _, raw := range enabled {
		tag := Normalize(raw)
		tbl, ok := builtin[tag]
		if !ok {
			continue
		}
		if _, dup := c.tables[tag]; dup {
			continue
		}
		c.tables[tag] = tbl
		c.order = append(c.order, tag)
	}
	if _, ok := c.tables[Fallback]; !ok {
		c.tables[Fallback] = builtin[Fallback]
		c.order = append(c.order, Fallback)
	}
	c.def = Normalize(def)
	if _, ok := c.tables[c.def]; !ok {
		c.def = Fallback
	}
	return c
}

// Default is the locale assigned to new sessions.
func (c *Catalog) Default() string { return c.def }

// Locales lists enabled locales in display order.
func (c *Catalog) Locales() []string { return append([]string(nil), c.order...) }

func (c *Catalog) Has(locale string) bool {
	_, ok := c.tables[Normalize(locale)]
	return ok
}

// T renders key for locale. Args are applied with fmt.Sprintf when present.
func (c *Catalog) T(locale, key string, args ...any) string {
	tmpl, ok := c.lookup(Normalize(locale), key)
	if !ok {
		tmpl = key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

func (c *Catalog) lookup(locale, key string) (string, bool) {
	for _, l := range []string{locale, c.def, Fallback} {
		if tbl, ok := c.tables[l]; ok {
			if s, ok := tbl[key]; ok {
				return s, true
			}
		}
	}
	return "", false
}

// Match returns the locale whose value for key equals text exactly.
// It is used to recognise reply-keyboard button presses.
func (c *Catalog) Match(key, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, l := range c.order {
		if s, ok := c.tables[l][key]; ok && s == text {
			return l, true
		}
	}
	return "", false
}

// Normalize reduces a language tag to its primary subtag: "en-US" -> "en".
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
