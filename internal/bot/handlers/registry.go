package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	// MatchFunc, when set, replaces HandlerType, Pattern and MatchType.
	MatchFunc tgbot.MatchFunc
	// Description is shown in the command menu. Empty keeps the command out of it.
	Description string
}

// RegisterAllCommands initializes and returns a map of all bot handlers except
// the default one, which answers follow-up questions (see NewFollowUpHandler).
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Description: "Начать работу",
	}
	handlers["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Description: "Как пользоваться ботом",
	}
	handlers["photo"] = RegisteredHandler{
		MatchFunc: isPhotoMessage,
		Handler:   NewPhotoHandler(deps),
	}

	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	handlers["/stats"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "stats",
		Handler:     NewStatsHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}

	return handlers
}

func isPhotoMessage(update *models.Update) bool {
	return update.Message != nil && len(update.Message.Photo) > 0
}
