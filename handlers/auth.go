package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"postal-prediction-api/config"
	"postal-prediction-api/models"
	"postal-prediction-api/services"
)

// AuthHandler manages operator accounts for the prediction dashboard.
type AuthHandler struct {
	db       *gorm.DB
	auth     *services.AuthService
	tokenTTL time.Duration
}

func NewAuthHandler(db *gorm.DB, auth *services.AuthService, cfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		db:       db,
		auth:     auth,
		tokenTTL: time.Duration(cfg.ExpiryHours) * time.Hour,
	}
}

type credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerPayload struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// SessionResponse is returned on successful register or login.
type SessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      models.User `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := models.User{Email: normalizeEmail(req.Email), Password: hash}
	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	h.issueSession(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !h.auth.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.issueSession(c, http.StatusOK, user)
}

// Logout is stateless: tokens are not tracked server side, the client just
// discards its copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) issueSession(c *gin.Context, status int, user models.User) {
	token, err := h.auth.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(status, SessionResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokenTTL).Format(time.RFC3339),
		User:      user,
	})
}

// normalizeEmail canonicalizes an address so lookups and the unique index
// agree regardless of how the operator typed it.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
