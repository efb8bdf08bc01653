package dispatch

import (
	"strings"

	"ridebot/internal/dialogue"
	"ridebot/internal/i18n"
)

// FormatOrder renders the message fulfillers receive. Field order is fixed:
// name, phone, pickup, dropoff, optional comment, navigation link, then a
// contact line that prefers the requester's @handle over the phone.
func FormatOrder(cat *i18n.Catalog, locale string, d dialogue.Draft, username string) string {
	lines := []string{
		cat.T(locale, i18n.KeyOrderTitle),
		"",
		cat.T(locale, i18n.KeyFieldName, d.Name),
		cat.T(locale, i18n.KeyFieldPhone, d.Contact),
		cat.T(locale, i18n.KeyFieldPickup, dialogue.PickupText(cat, locale, d.Pickup)),
		cat.T(locale, i18n.KeyFieldDropoff, d.Dropoff),
	}
	if d.Comment != "" {
		lines = append(lines, cat.T(locale, i18n.KeyFieldComment, d.Comment))
	}
	lines = append(lines, "", cat.T(locale, i18n.KeyOrderNav, d.Pickup.NavLink()))

	if u := strings.TrimPrefix(strings.TrimSpace(username), "@"); u != "" {
		lines = append(lines, cat.T(locale, i18n.KeyOrderContactHandle, u))
	} else {
		phone := d.Contact
		if strings.TrimSpace(phone) == "" {
			phone = cat.T(locale, i18n.KeyNoPhone)
		}
		lines = append(lines, cat.T(locale, i18n.KeyOrderContactPhone, phone))
	}
	return strings.Join(lines, "\n")
}

// customerLabel names the requester in operator messages.
func customerLabel(username, name string) string {
	if u := strings.TrimPrefix(strings.TrimSpace(username), "@"); u != "" {
		return "@" + u
	}
	if strings.TrimSpace(name) != "" {
		return name
	}
	return "unknown"
}
