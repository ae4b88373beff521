package domain

import "time"

// Point economics. Values match the bot's published rules.
const (
	WithdrawCost       = 16
	ReferralBonusOwner = 8 // credited to the referrer
	ReferralBonusNew   = 4 // credited to the referred user
)

// WithdrawCooldown is measured from the user's last successful withdrawal.
const WithdrawCooldown = 4 * time.Hour

// File categories.
const (
	CategoryWithdraw = "withdraw"
	CategoryClaim    = "claim"
)

// Pool counter keys in bot_settings.
const (
	SettingWithdrawFiles = "withdraw_files"
	SettingClaimFiles    = "claim_files"
)

// Claim code generation.
const (
	CodeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength    = 8
	CodeMinLength = 4 // minimum accepted length for custom codes
)

// Audit retention windows.
const (
	LogRetention   = 15 * 24 * time.Hour
	ClaimRetention = 30 * 24 * time.Hour
)
