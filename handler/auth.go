package handler

import (
	"net/http"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/middleware"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	config *config.Config
	// decoy is compared against when the operator is unknown so that both
	// failures take a bcrypt round.
	decoy []byte
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	decoy, _ := bcrypt.GenerateFromPassword([]byte("decoy"), bcrypt.DefaultCost)
	return &AuthHandler{config: cfg, decoy: decoy}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
}

// Login checks the password against the operator's bcrypt hash
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	hash := h.decoy
	user := h.config.FindUser(req.Username)
	if user != nil {
		hash = []byte(user.PasswordHash)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil || user == nil {
		logger.Warn(c.Request.Context(), "failed login", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user.Username, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Username:  user.Username,
	})
}

// GetCurrentUser returns the current operator
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"username": middleware.GetUsername(c),
	})
}
