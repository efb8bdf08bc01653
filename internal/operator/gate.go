// Package operator implements the fulfiller-management commands available
// to allow-listed operators on the requester bot.
package operator

import (
	"strings"
	"sync"
)

// GateConfig lists who may run operator commands. A user passes when either
// the numeric id or the username (case-insensitive, leading @ ignored)
// matches.
type GateConfig struct {
	Usernames []string
	UserIDs   []int64
}

// Gate is the allow-list check plugged into the router.
type Gate struct {
	mu    sync.RWMutex
	names map[string]struct{}
	ids   map[int64]struct{}
}

func NewGate(cfg GateConfig) *Gate {
	g := &Gate{}
	g.Apply(cfg)
	return g
}

// Apply swaps the allow-list.
func (g *Gate) Apply(cfg GateConfig) {
	names := make(map[string]struct{}, len(cfg.Usernames))
	for _, n := range cfg.Usernames {
		if k := normalizeUsername(n); k != "" {
			names[k] = struct{}{}
		}
	}
	ids := make(map[int64]struct{}, len(cfg.UserIDs))
	for _, id := range cfg.UserIDs {
		if id != 0 {
			ids[id] = struct{}{}
		}
	}
	g.mu.Lock()
	g.names, g.ids = names, ids
	g.mu.Unlock()
}

func (g *Gate) Allowed(userID int64, username string) bool {
	if g == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.ids[userID]; ok && userID != 0 {
		return true
	}
	if k := normalizeUsername(username); k != "" {
		_, ok := g.names[k]
		return ok
	}
	return false
}

// Size returns the number of allow-list entries.
func (g *Gate) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.names) + len(g.ids)
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}
