package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"casino-aggregator-backend/internal/models"
	"casino-aggregator-backend/internal/services"
)

const sessionTTL = 24 * time.Hour

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
	currencies   *services.CurrencyRegistry
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService, currencies *services.CurrencyRegistry) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
		currencies:   currencies,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Username string `json:"username" binding:"required,min=3"`
		Phone    string `json:"phone"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if _, err := h.redisService.FindUserByIdentifier(req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if _, err := h.redisService.FindUserByIdentifier(req.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	userID, err := h.redisService.NextUserID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	now := time.Now().Unix()
	user := &models.User{
		ID:               userID,
		Email:            req.Email,
		Username:         req.Username,
		Phone:            req.Phone,
		PasswordHash:     string(hash),
		SelectedCurrency: h.currencies.Default().ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.redisService.SaveUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	h.issueToken(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	user, err := h.redisService.FindUserByIdentifier(req.Identifier)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.issueToken(c, user)
}

func (h *AuthHandler) issueToken(c *gin.Context, user *models.User) {
	sessionID := uuid.New().String()

	token, err := h.jwtService.GenerateToken(user.ID, sessionID, sessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user": gin.H{
			"id":                user.ID,
			"email":             user.Email,
			"username":          user.Username,
			"selected_currency": user.SelectedCurrency,
		},
	})
}
