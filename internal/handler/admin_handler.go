package handler

import (
	"errors"
	"net/http"

	"droply/config"
	"droply/internal/auth"
	"droply/internal/domain"
	"droply/internal/repository"
	"droply/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AdminHandler struct {
	cfg        *config.Config
	redemption *service.RedemptionService
	users      *repository.UserRepository
	codes      *repository.CodeRepository
	settings   *repository.SettingRepository
	files      *repository.FileRepository
}

func NewAdminHandler(cfg *config.Config, redemption *service.RedemptionService, users *repository.UserRepository, codes *repository.CodeRepository, settings *repository.SettingRepository, files *repository.FileRepository) *AdminHandler {
	return &AdminHandler{cfg: cfg, redemption: redemption, users: users, codes: codes, settings: settings, files: files}
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.Admin.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := auth.GenerateAdminToken(&h.cfg.JWT)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	userCount, err := h.users.CountUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	withdrawFiles, err := h.settings.Get(domain.SettingWithdrawFiles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	claimFiles, err := h.settings.Get(domain.SettingClaimFiles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	activeCodes, err := h.codes.CountActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":          userCount,
		"withdraw_files": withdrawFiles,
		"claim_files":    claimFiles,
		"active_codes":   activeCodes,
	})
}

func (h *AdminHandler) ListCodes(c *gin.Context) {
	codes, err := h.codes.ListActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes})
}

type CreateCodeRequest struct {
	Code    string `json:"code"` // empty means generate a random one
	MaxUses int    `json:"max_uses" binding:"required,min=1"`
}

func (h *AdminHandler) CreateCode(c *gin.Context) {
	var req CreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Code == "" {
		code, err := h.redemption.CreateRandomCode(req.MaxUses, h.cfg.Telegram.OwnerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": code})
		return
	}
	code, err := h.redemption.CreateCode(req.Code, req.MaxUses, h.cfg.Telegram.OwnerID)
	switch {
	case errors.Is(err, service.ErrCodeTooShort), errors.Is(err, service.ErrInvalidMaxUses):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrCodeExists):
		c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, gin.H{"code": code})
	}
}
