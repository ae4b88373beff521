package bot

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"droply/internal/models"
	"droply/internal/repository"
	"droply/internal/service"
	"droply/pkg/telegram"
)

// ActivityPublisher receives withdrawal/claim events for the admin feed.
// *ws.Hub satisfies it; nil disables publishing.
type ActivityPublisher interface {
	BroadcastAll(payload interface{})
}

// ActivityEvent is the payload pushed to the admin activity feed.
type ActivityEvent struct {
	Type     string    `json:"type"` // withdrawal | claim
	EventID  string    `json:"event_id"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	FileName string    `json:"file_name"`
	Code     string    `json:"code,omitempty"`
	At       time.Time `json:"at"`
}

// Bot routes inbound platform updates through the per-user conversation state
// machine into the ledger and redemption engines.
type Bot struct {
	gw         Gateway
	states     *StateStore
	ledger     *service.LedgerService
	redemption *service.RedemptionService
	users      *repository.UserRepository
	files      *repository.FileRepository
	settings   *repository.SettingRepository
	codes      *repository.CodeRepository
	audit      *repository.AuditRepository
	activity   ActivityPublisher

	ownerID     int64
	botUsername string
	channels    []string

	// pendingReferrals holds the referrer id for users stuck at the join gate,
	// applied once they pass it. Process-memory only, like conversation state.
	mu               sync.Mutex
	pendingReferrals map[int64]int64
}

type Deps struct {
	Gateway    Gateway
	Ledger     *service.LedgerService
	Redemption *service.RedemptionService
	Users      *repository.UserRepository
	Files      *repository.FileRepository
	Settings   *repository.SettingRepository
	Codes      *repository.CodeRepository
	Audit      *repository.AuditRepository
	Activity   ActivityPublisher

	OwnerID     int64
	BotUsername string
	Channels    []string
}

func New(d Deps) *Bot {
	return &Bot{
		gw:               d.Gateway,
		states:           NewStateStore(),
		ledger:           d.Ledger,
		redemption:       d.Redemption,
		users:            d.Users,
		files:            d.Files,
		settings:         d.Settings,
		codes:            d.Codes,
		audit:            d.Audit,
		activity:         d.Activity,
		ownerID:          d.OwnerID,
		botUsername:      d.BotUsername,
		channels:         d.Channels,
		pendingReferrals: make(map[int64]int64),
	}
}

// HandleUpdate is the single entry point for inbound events. Updates for the same
// chat arrive in order (platform guarantee); handling is synchronous.
func (b *Bot) HandleUpdate(ctx context.Context, upd *telegram.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *telegram.CallbackQuery) {
	if err := b.gw.AnswerCallbackQuery(ctx, q.ID); err != nil {
		log.Printf("[bot] answer callback: %v", err) // stale queries are non-fatal
	}
	chatID := q.From.ID
	if q.Message != nil {
		chatID = q.Message.Chat.ID
	}
	it := newInteraction(ctx, b.gw, q.From, chatID)

	switch q.Data {
	case cbProfile:
		b.showProfile(it)
	case cbWithdraw:
		b.handleWithdraw(it)
	case cbClaimCode:
		b.openClaimMenu(it)
	case cbStats:
		b.showStats(it)
	case cbGenerateCode:
		b.openGenerateCodeMenu(it)
	case cbAddFiles:
		b.openAddFilesMenu(it)
	case cbAddWithdrawFiles:
		b.enterUploadState(it, StateAwaitWithdrawUpload)
	case cbAddClaimFiles:
		b.enterUploadState(it, StateAwaitClaimUpload)
	case cbCheckMembership:
		b.handleMembershipRecheck(it)
	case cbBackToMenu:
		b.backToMenu(it)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.Chat.Type != "private" {
		return
	}
	it := newInteraction(ctx, b.gw, *msg.From, msg.Chat.ID)

	if strings.HasPrefix(msg.Text, "/start") {
		b.handleStart(it, msg.Text)
		return
	}
	if b.routeMenuButton(it, msg.Text) {
		return
	}
	b.dispatch(it, msg)
}

// handleStart registers new users, applying the ref_<id> deep-link payload, and
// gates everything behind channel membership.
func (b *Bot) handleStart(it *Interaction, text string) {
	var referredBy int64
	fields := strings.Fields(text)
	if len(fields) > 1 && strings.HasPrefix(fields[1], "ref_") {
		if id, err := strconv.ParseInt(strings.TrimPrefix(fields[1], "ref_"), 10, 64); err == nil {
			referredBy = id
		}
	}

	if !b.isMember(it.ctx, it.UserID()) {
		if referredBy != 0 {
			b.mu.Lock()
			b.pendingReferrals[it.UserID()] = referredBy
			b.mu.Unlock()
		}
		b.sendJoinPrompt(it)
		return
	}

	if _, err := b.users.GetByTelegramID(it.UserID()); err == nil {
		b.showMenu(it)
		return
	}
	b.registerUser(it, referredBy)
	b.showMenu(it)
}

// handleMembershipRecheck runs when the user presses "I joined" at the join gate.
func (b *Bot) handleMembershipRecheck(it *Interaction) {
	if !b.isMember(it.ctx, it.UserID()) {
		_ = it.Reply("You still need to join all required channels.", b.joinKeyboard())
		return
	}
	_ = it.Reply("Thank you for joining.", nil)

	b.mu.Lock()
	referredBy := b.pendingReferrals[it.UserID()]
	delete(b.pendingReferrals, it.UserID())
	b.mu.Unlock()

	if _, err := b.users.GetByTelegramID(it.UserID()); err != nil {
		b.registerUser(it, referredBy)
	}
	b.showMenu(it)
}

func (b *Bot) registerUser(it *Interaction, referredBy int64) {
	u := &models.User{
		TelegramID: it.UserID(),
		Username:   it.Username(),
		FirstName:  it.FirstName(),
	}
	if referredBy != 0 && referredBy != it.UserID() {
		u.ReferredBy = &referredBy
	}
	if err := b.users.Create(u); err != nil {
		if !errors.Is(err, repository.ErrUserExists) {
			log.Printf("[bot] create user %d: %v", it.UserID(), err)
		}
		return
	}
	if u.ReferredBy != nil {
		b.ledger.CreditReferral(referredBy, it.UserID())
		_ = it.Reply("You earned 4 points for joining through a referral link.", nil)
		// Notifying the referrer is best-effort; their credit is already applied.
		if err := b.gw.SendMessage(it.ctx, referredBy,
			"You earned 8 points: "+it.FirstName()+" joined using your referral link.", nil); err != nil {
			log.Printf("[bot] referrer notify %d: %v", referredBy, err)
		}
	}
}

// isMember applies the membership oracle with the owner bypass.
func (b *Bot) isMember(ctx context.Context, userID int64) bool {
	if userID == b.ownerID {
		return true
	}
	return b.ledger.IsMember(ctx, userID)
}

func (b *Bot) joinKeyboard() *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for _, ch := range b.channels {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text: "Join " + ch,
			URL:  "https://t.me/" + strings.TrimPrefix(ch, "@"),
		}})
	}
	rows = append(rows, []telegram.InlineKeyboardButton{{
		Text:         "I joined",
		CallbackData: cbCheckMembership,
	}})
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (b *Bot) sendJoinPrompt(it *Interaction) {
	_ = it.Reply("You must join our channels to use this bot.", b.joinKeyboard())
}

func (b *Bot) publish(ev ActivityEvent) {
	if b.activity != nil {
		ev.At = time.Now()
		b.activity.BroadcastAll(ev)
	}
}
