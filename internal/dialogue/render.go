package dialogue

import (
	"strings"

	"ridebot/internal/i18n"
	kit "ridebot/internal/transport"
)

// Render turns a prompt into message text and keyboard in the given locale.
func Render(cat *i18n.Catalog, locale string, p Prompt) (string, *kit.Keyboard) {
	text := cat.T(locale, p.Key)
	if p.Draft != nil {
		text = Summary(cat, locale, *p.Draft)
	}
	return text, keyboard(cat, locale, p.Keyboard)
}

// Summary renders the order review shown before confirmation.
func Summary(cat *i18n.Catalog, locale string, d Draft) string {
	lines := []string{
		cat.T(locale, i18n.KeySummaryTitle),
		"",
		cat.T(locale, i18n.KeyFieldName, d.Name),
		cat.T(locale, i18n.KeyFieldPhone, d.Contact),
		cat.T(locale, i18n.KeyFieldPickup, PickupText(cat, locale, d.Pickup)),
		cat.T(locale, i18n.KeyFieldDropoff, d.Dropoff),
	}
	if d.Comment != "" {
		lines = append(lines, cat.T(locale, i18n.KeyFieldComment, d.Comment))
	}
	return strings.Join(lines, "\n")
}

// PickupText is the human form of a pickup: the address, or the
// coordinates with a location marker.
func PickupText(cat *i18n.Catalog, locale string, p Pickup) string {
	if p.HasCoords {
		return cat.T(locale, i18n.KeyPickupCoords, FormatCoord(p.Lat), FormatCoord(p.Lon))
	}
	return p.Address
}

func keyboard(cat *i18n.Catalog, locale string, kind KeyboardKind) *kit.Keyboard {
	switch kind {
	case KeyboardEntry:
		langs := make([]kit.Button, 0, len(cat.Locales()))
		for _, l := range cat.Locales() {
			langs = append(langs, kit.Button{Text: cat.T(l, i18n.KeyLangLabel)})
		}
		rows := [][]kit.Button{{{Text: cat.T(locale, i18n.KeyBtnOrder)}}}
		if len(langs) > 1 {
			rows = append(rows, langs)
		}
		return &kit.Keyboard{Rows: rows, OneTime: true}
	case KeyboardOrder:
		return &kit.Keyboard{Rows: [][]kit.Button{{{Text: cat.T(locale, i18n.KeyBtnOrder)}}}}
	case KeyboardContact:
		return &kit.Keyboard{OneTime: true, Rows: [][]kit.Button{{{Text: cat.T(locale, i18n.KeyBtnContact), Kind: kit.ButtonContact}}}}
	case KeyboardLocation:
		return &kit.Keyboard{OneTime: true, Rows: [][]kit.Button{{{Text: cat.T(locale, i18n.KeyBtnLocation), Kind: kit.ButtonLocation}}}}
	case KeyboardRemove:
		return &kit.Keyboard{Remove: true}
	case KeyboardConfirmComment:
		return &kit.Keyboard{Inline: true, Rows: [][]kit.Button{
			{{Text: cat.T(locale, i18n.KeyBtnConfirm), Kind: kit.ButtonCallback, Data: CallbackConfirm}},
			{{Text: cat.T(locale, i18n.KeyBtnComment), Kind: kit.ButtonCallback, Data: CallbackComment}},
		}}
	case KeyboardConfirm:
		return &kit.Keyboard{Inline: true, Rows: [][]kit.Button{
			{{Text: cat.T(locale, i18n.KeyBtnConfirm), Kind: kit.ButtonCallback, Data: CallbackConfirm}},
		}}
	}
	return nil
}
