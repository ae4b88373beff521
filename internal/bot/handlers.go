package bot

import (
	"errors"
	"fmt"
	"log"

	"droply/internal/domain"
	"droply/internal/repository"
	"droply/internal/service"
	"droply/pkg/telegram"
)

// Callback data values.
const (
	cbProfile          = "my_profile"
	cbWithdraw         = "withdraw_points"
	cbClaimCode        = "claim_code"
	cbStats            = "stats"
	cbGenerateCode     = "generate_code"
	cbAddFiles         = "add_files"
	cbAddWithdrawFiles = "add_withdraw_files"
	cbAddClaimFiles    = "add_claim_files"
	cbCheckMembership  = "check_membership"
	cbBackToMenu       = "back_to_menu"
)

// Reply-keyboard button labels. Text messages matching one of these route to the
// same handler as the corresponding callback.
const (
	btnProfile      = "My Profile"
	btnWithdraw     = "Withdraw Points"
	btnClaimCode    = "Claim Code"
	btnStats        = "Stats"
	btnGenerateCode = "Generate Code"
	btnAddFiles     = "Add Files"
	btnBackToMenu   = "Back to Menu"
)

// routeMenuButton maps reply-keyboard presses onto the shared menu handlers.
// Returns false when the text is not a menu button.
func (b *Bot) routeMenuButton(it *Interaction, text string) bool {
	switch text {
	case btnProfile:
		b.showProfile(it)
	case btnWithdraw:
		b.handleWithdraw(it)
	case btnClaimCode:
		b.openClaimMenu(it)
	case btnStats:
		b.showStats(it)
	case btnGenerateCode:
		b.openGenerateCodeMenu(it)
	case btnAddFiles:
		b.openAddFilesMenu(it)
	case btnBackToMenu:
		b.backToMenu(it)
	default:
		return false
	}
	return true
}

func (b *Bot) menuKeyboard(userID int64) *telegram.ReplyKeyboardMarkup {
	rows := [][]telegram.KeyboardButton{
		{{Text: btnProfile}, {Text: btnWithdraw}},
		{{Text: btnClaimCode}, {Text: btnStats}},
	}
	if userID == b.ownerID {
		rows = append(rows,
			[]telegram.KeyboardButton{{Text: btnGenerateCode}},
			[]telegram.KeyboardButton{{Text: btnAddFiles}},
		)
	}
	return &telegram.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}

func (b *Bot) showMenu(it *Interaction) {
	_ = it.Reply("Main menu. Welcome back, "+it.FirstName()+".", b.menuKeyboard(it.UserID()))
}

// backToMenu clears every pending conversation state and scratch value.
func (b *Bot) backToMenu(it *Interaction) {
	b.states.Clear(it.UserID())
	b.showMenu(it)
}

func (b *Bot) showProfile(it *Interaction) {
	u, err := b.users.GetByTelegramID(it.UserID())
	if err != nil {
		_ = it.Reply("User not found. Send /start first.", nil)
		return
	}
	link := fmt.Sprintf("https://t.me/%s?start=ref_%d", b.botUsername, u.TelegramID)
	_ = it.Reply(fmt.Sprintf(
		"Your profile\nID: %d\nName: %s\nPoints: %d\nReferral link: %s\nShare it to earn %d points per referral; new users get %d.",
		u.TelegramID, u.FirstName, u.Points, link,
		domain.ReferralBonusOwner, domain.ReferralBonusNew,
	), backKeyboard())
}

func (b *Bot) showStats(it *Interaction) {
	users, _ := b.users.CountUsers()
	codes, _ := b.codes.CountActive()
	withdrawPool, _ := b.settings.Get(domain.SettingWithdrawFiles)
	claimPool, _ := b.settings.Get(domain.SettingClaimFiles)
	_ = it.Reply(fmt.Sprintf(
		"Stats\nUsers: %d\nWithdraw files: %d\nClaim files: %d\nActive codes: %d",
		users, withdrawPool, claimPool, codes,
	), backKeyboard())
}

// handleWithdraw runs the point-funded withdrawal and delivers the file. A
// delivery failure after the commit is reported, never rolled back.
func (b *Bot) handleWithdraw(it *Interaction) {
	file, remaining, err := b.ledger.Withdraw(it.ctx, it.UserID())
	if err != nil {
		var cooldown *service.CooldownError
		switch {
		case errors.Is(err, service.ErrNotMember):
			_ = it.Reply("You must join our channels to withdraw.", b.joinKeyboard())
		case errors.Is(err, repository.ErrInsufficientPoints):
			_ = it.Reply(fmt.Sprintf("Not enough points. You have %d, minimum required is %d.",
				remaining, domain.WithdrawCost), backKeyboard())
		case errors.As(err, &cooldown):
			h := int(cooldown.Remaining.Hours())
			m := int(cooldown.Remaining.Minutes()) % 60
			_ = it.Reply(fmt.Sprintf("Cooldown active. Next withdrawal in %dh %dm.", h, m), backKeyboard())
		case errors.Is(err, repository.ErrPoolEmpty):
			_ = it.Reply("No files available for withdrawal.", backKeyboard())
		case errors.Is(err, repository.ErrUserNotFound):
			_ = it.Reply("User not found. Send /start first.", nil)
		default:
			log.Printf("[bot] withdraw for %d: %v", it.UserID(), err)
			_ = it.Reply("Something went wrong, please try again.", backKeyboard())
		}
		return
	}

	if err := b.gw.SendDocument(it.ctx, it.UserID(), file.FileID, ""); err != nil {
		log.Printf("[bot] withdraw delivery to %d: %v", it.UserID(), err)
		_ = it.Reply(fmt.Sprintf(
			"Points deducted (remaining: %d) but the file could not be sent. Please contact the admin.",
			remaining), backKeyboard())
		return
	}

	entry, err := b.audit.LogWithdrawal(it.UserID(), it.Username(), file.FileID, file.FileName)
	if err != nil {
		log.Printf("[bot] withdraw audit for %d: %v", it.UserID(), err)
	} else {
		b.publish(ActivityEvent{
			Type: "withdrawal", EventID: entry.EventID,
			UserID: it.UserID(), Username: it.Username(), FileName: file.FileName,
		})
	}
	_ = it.Reply(fmt.Sprintf(
		"Withdrawal successful. %d points deducted, %d remaining. File: %s. Next withdrawal in 4 hours.",
		domain.WithdrawCost, remaining, file.FileName), backKeyboard())
}

func (b *Bot) openClaimMenu(it *Interaction) {
	b.states.Set(it.UserID(), StateAwaitClaimCode)
	_ = it.Reply("Send your claim code to redeem a file. Each code can be used once per user.", backKeyboard())
}

func (b *Bot) openGenerateCodeMenu(it *Interaction) {
	if it.UserID() != b.ownerID {
		_ = it.Reply("Unauthorized.", nil)
		return
	}
	b.states.Set(it.UserID(), StateAwaitCodeUserCount)
	_ = it.Reply("Step 1: how many users can claim this code? Send a number.", backKeyboard())
}

func (b *Bot) openAddFilesMenu(it *Interaction) {
	if it.UserID() != b.ownerID {
		_ = it.Reply("Unauthorized.", nil)
		return
	}
	withdrawPool, _ := b.settings.Get(domain.SettingWithdrawFiles)
	claimPool, _ := b.settings.Get(domain.SettingClaimFiles)
	kb := &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: "Add withdrawal files", CallbackData: cbAddWithdrawFiles}},
		{{Text: "Add claim files", CallbackData: cbAddClaimFiles}},
		{{Text: btnBackToMenu, CallbackData: cbBackToMenu}},
	}}
	_ = it.Reply(fmt.Sprintf("File management. Withdrawal files: %d, claim files: %d.",
		withdrawPool, claimPool), kb)
}

// enterUploadState puts the owner into one upload category. A user holds at most
// one state, so the other upload category is cleared by construction.
func (b *Bot) enterUploadState(it *Interaction, st State) {
	if it.UserID() != b.ownerID {
		_ = it.Reply("Unauthorized.", nil)
		return
	}
	b.states.Set(it.UserID(), st)
	name := "withdrawal"
	if st == StateAwaitClaimUpload {
		name = "claim"
	}
	_ = it.Reply("Send the "+name+" files to add. You can send several; go back to the menu when done.", backKeyboard())
}

func backKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: btnBackToMenu, CallbackData: cbBackToMenu}},
	}}
}
