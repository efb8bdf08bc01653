package app

import (
	"context"

	"ridebot/internal/i18n"
	kit "ridebot/internal/transport"
	"ridebot/internal/transport/telegram/router"
)

// fulfillerCommands is the driver bot surface: drivers learn their chat id
// here and hand it to an operator.
func (a *App) fulfillerCommands() []router.Command {
	return []router.Command{
		{
			Name:        "start",
			Description: "show your chat id",
			Handle: func(ctx context.Context, req *router.Request) error {
				text := a.catalog.T(a.fulfillerLocale(), i18n.KeyDriverWelcome, req.Chat.ChatID)
				_, err := req.Reply(ctx, text, &kit.SendOptions{ParseMode: "Markdown"})
				return err
			},
		},
		{
			Name:        "help",
			Description: "what orders look like",
			Handle: func(ctx context.Context, req *router.Request) error {
				text := a.catalog.T(a.fulfillerLocale(), i18n.KeyDriverHelp)
				_, err := req.Reply(ctx, text, &kit.SendOptions{ParseMode: "Markdown"})
				return err
			},
		},
	}
}

func (a *App) fulfillerLocale() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.driverLocale != "" {
		return a.driverLocale
	}
	return a.catalog.Default()
}
