package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"droply/internal/domain"
	"droply/internal/models"
	"droply/internal/repository"
	"droply/pkg/telegram"
)

// dispatch routes a free-form message through the conversation state machine.
// Priority is fixed: code user count > claim code > custom code > withdraw upload
// > claim upload > idle fallback. A payload of the wrong shape is rejected and the
// state is left untouched.
func (b *Bot) dispatch(it *Interaction, msg *telegram.Message) {
	state, maxUses := b.states.Get(it.UserID())
	_, _, hasFile := msg.Attachment()
	text := strings.TrimSpace(msg.Text)

	switch state {
	case StateAwaitCodeUserCount:
		if hasFile || text == "" {
			_ = it.Reply("Send a number only, not a file.", nil)
			return
		}
		b.handleCodeUserCount(it, text)

	case StateAwaitClaimCode:
		if hasFile || text == "" {
			_ = it.Reply("Send the claim code as text, not a file.", nil)
			return
		}
		if len(text) < domain.CodeMinLength {
			_ = it.Reply("Invalid claim code: it must be at least 4 characters.", nil)
			return
		}
		b.handleClaimCode(it, text)

	case StateAwaitCustomCode:
		if hasFile || text == "" {
			_ = it.Reply("Send the code as text, not a file.", nil)
			return
		}
		if len(text) < domain.CodeMinLength {
			_ = it.Reply("Code too short: it must be at least 4 characters.", nil)
			return
		}
		b.handleCustomCode(it, text, maxUses)

	case StateAwaitWithdrawUpload:
		b.handleFileUpload(it, msg, domain.CategoryWithdraw, domain.SettingWithdrawFiles)

	case StateAwaitClaimUpload:
		b.handleFileUpload(it, msg, domain.CategoryClaim, domain.SettingClaimFiles)

	default:
		b.handleIdleMessage(it, text, hasFile)
	}
}

// handleCodeUserCount is step 1 of code creation: a positive integer moves the
// owner to step 2 with the count as scratch; anything else stays put.
func (b *Bot) handleCodeUserCount(it *Interaction, text string) {
	n, err := strconv.Atoi(text)
	if err != nil {
		_ = it.Reply("Invalid input: send a valid number.", nil)
		return
	}
	if n <= 0 {
		_ = it.Reply("Invalid number: send a positive number.", nil)
		return
	}
	b.states.SetScratch(it.UserID(), StateAwaitCustomCode, n)
	_ = it.Reply(fmt.Sprintf("Max users set to %d. Step 2: send the code to create (minimum 4 characters).", n), nil)
}

// handleCustomCode is step 2: any creation attempt, successful or duplicate,
// clears the state and scratch.
func (b *Bot) handleCustomCode(it *Interaction, text string, maxUses int) {
	if maxUses <= 0 {
		b.states.Clear(it.UserID())
		_ = it.Reply("Session expired. Please start again.", nil)
		return
	}
	// Require the claim pool to cover the code before minting; the counter itself
	// is only drained as claims happen. An unreadable counter counts as empty.
	pool, err := b.redemption.ClaimPool()
	if err != nil {
		log.Printf("[bot] claim pool read for %d: %v", it.UserID(), err)
		pool = 0
	}
	if pool < maxUses {
		b.states.Clear(it.UserID())
		_ = it.Reply(fmt.Sprintf("Not enough claim files: need %d but only %d available. Add more claim files first.",
			maxUses, pool), nil)
		return
	}

	b.states.Clear(it.UserID())
	code, err := b.redemption.CreateCode(text, maxUses, it.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			_ = it.Reply("That code already exists. Please choose a different one.", nil)
			return
		}
		log.Printf("[bot] create code for %d: %v", it.UserID(), err)
		_ = it.Reply("Something went wrong, please try again.", nil)
		return
	}
	_ = it.Reply(fmt.Sprintf("Code created: %s, max users %d, one file per claim. Share it with your users.",
		code.Code, maxUses), nil)
}

// handleClaimCode redeems a code and delivers one claim file. Any redemption
// attempt clears the awaiting state. A committed claim is kept even when the file
// delivery afterwards fails.
func (b *Bot) handleClaimCode(it *Interaction, text string) {
	if !b.isMember(it.ctx, it.UserID()) {
		_ = it.Reply("You must rejoin our channels to claim files.", b.joinKeyboard())
		return
	}
	b.states.Clear(it.UserID())

	remaining, err := b.redemption.Redeem(it.UserID(), text)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCodeNotFound):
			_ = it.Reply("Invalid or expired claim code. Check the code and try again.", nil)
		case errors.Is(err, repository.ErrAlreadyClaimed):
			_ = it.Reply("You have already claimed this code. Each user can use a code once.", nil)
		case errors.Is(err, repository.ErrCodeExhausted):
			_ = it.Reply("This claim code has no uses left and has been deactivated.", nil)
		default:
			log.Printf("[bot] redeem for %d: %v", it.UserID(), err)
			_ = it.Reply("Something went wrong, please try again.", nil)
		}
		return
	}

	// The claim slot is committed; file selection and delivery come after and are
	// reported, not rolled back, when they fail.
	file, err := b.files.ConsumeRandom(domain.CategoryClaim)
	if err != nil {
		if !errors.Is(err, repository.ErrNoFiles) {
			log.Printf("[bot] claim file select for %d: %v", it.UserID(), err)
		}
		_ = it.Reply("Your claim was recorded but no file is available. Please contact the admin.", nil)
		return
	}

	caption := fmt.Sprintf("Code claimed. File: %s. Remaining uses for this code: %d.", file.FileName, remaining)
	if err := b.gw.SendDocument(it.ctx, it.UserID(), file.FileID, caption); err != nil {
		log.Printf("[bot] claim delivery to %d: %v", it.UserID(), err)
		_ = it.Reply(fmt.Sprintf(
			"Code claimed but the file could not be sent. Please contact the admin. Remaining uses: %d.",
			remaining), nil)
		return
	}

	code := strings.ToUpper(text)
	entry, err := b.audit.LogClaim(it.UserID(), it.Username(), file.FileID, file.FileName, code)
	if err != nil {
		log.Printf("[bot] claim audit for %d: %v", it.UserID(), err)
	} else {
		b.publish(ActivityEvent{
			Type: "claim", EventID: entry.EventID,
			UserID: it.UserID(), Username: it.Username(), FileName: file.FileName, Code: code,
		})
	}
}

// handleFileUpload stores an uploaded file reference and bumps the pool counter.
// The state is kept so the owner can upload a batch.
func (b *Bot) handleFileUpload(it *Interaction, msg *telegram.Message, category, poolKey string) {
	fileID, fileName, ok := msg.Attachment()
	if !ok {
		_ = it.Reply("Send a file, not text. Documents, photos, videos, audio, voice notes and stickers are accepted.", nil)
		return
	}
	if err := b.files.Create(&models.StoredFile{
		FileID:     fileID,
		Category:   category,
		FileName:   fileName,
		UploadedBy: it.UserID(),
	}); err != nil {
		log.Printf("[bot] store file for %d: %v", it.UserID(), err)
		_ = it.Reply("Error storing the file, please try again.", nil)
		return
	}
	if err := b.settings.Increment(poolKey, 1); err != nil {
		log.Printf("[bot] pool increment %s: %v", poolKey, err)
	}
	total, _ := b.settings.Get(poolKey)
	_ = it.Reply(fmt.Sprintf("File added: %s. Total %s files: %d. Send more or go back to the menu.",
		fileName, category, total), nil)
}

// handleIdleMessage is the fallback when no conversation state is pending.
func (b *Bot) handleIdleMessage(it *Interaction, text string, hasFile bool) {
	if hasFile {
		_ = it.Reply("Unexpected file. Use the menu options first.", nil)
		return
	}
	if text == "" {
		return
	}
	if !b.isMember(it.ctx, it.UserID()) {
		b.sendJoinPrompt(it)
		return
	}
	_ = it.Reply("Please use the menu buttons, or open Claim Code to enter a code.", nil)
}
