package router

import (
	"regexp"
	"strings"

	kit "ridebot/internal/transport"
)

const (
	maxMenuEntries = 100
	maxMenuDesc    = 256
)

// Telegram accepts 1-32 chars of [a-z0-9_] and clients expect a leading letter.
var menuName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// buildMenu lists the visible commands for Telegram's /menu, in
// registration order. Names Telegram would reject are left out.
func buildMenu(cmds []Command) []kit.BotCommand {
	seen := make(map[string]bool, len(cmds))
	out := make([]kit.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if c.Hidden || seen[name] || !menuName.MatchString(name) {
			continue
		}
		seen[name] = true

		desc := strings.Join(strings.Fields(c.Description), " ")
		if desc == "" {
			desc = "/" + name
		}
		if r := []rune(desc); len(r) > maxMenuDesc {
			desc = string(r[:maxMenuDesc])
		}
		out = append(out, kit.BotCommand{Command: name, Description: desc})
		if len(out) == maxMenuEntries {
			break
		}
	}
	return out
}
