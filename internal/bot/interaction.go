package bot

import (
	"context"

	"droply/pkg/telegram"
)

// Gateway is the outbound chat transport the bot depends on. pkg/telegram.Client
// implements it against the real platform, telegram.Stub in tests.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Interaction is the capability the menu handlers are written against: who is
// asking and how to answer them. Both the callback-query and plain-text entry
// points produce one, so every handler exists exactly once.
type Interaction struct {
	ctx    context.Context
	gw     Gateway
	user   telegram.User
	chatID int64
}

func newInteraction(ctx context.Context, gw Gateway, user telegram.User, chatID int64) *Interaction {
	return &Interaction{ctx: ctx, gw: gw, user: user, chatID: chatID}
}

func (it *Interaction) UserID() int64     { return it.user.ID }
func (it *Interaction) FirstName() string { return it.user.FirstName }
func (it *Interaction) Username() string  { return it.user.Username }

func (it *Interaction) Reply(text string, markup interface{}) error {
	return it.gw.SendMessage(it.ctx, it.chatID, text, markup)
}
