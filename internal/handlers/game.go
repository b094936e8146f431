package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casino-aggregator-backend/internal/models"
	"casino-aggregator-backend/internal/services"
)

type GameHandler struct {
	engine       *services.SettlementEngine
	catalog      *services.CatalogService
	redisService *services.RedisService
	currencies   *services.CurrencyRegistry
}

func NewGameHandler(
	engine *services.SettlementEngine,
	catalog *services.CatalogService,
	redisService *services.RedisService,
	currencies *services.CurrencyRegistry,
) *GameHandler {
	return &GameHandler{
		engine:       engine,
		catalog:      catalog,
		redisService: redisService,
		currencies:   currencies,
	}
}

// ListGames returns the catalog partitioned by provider. An empty list is a
// valid answer while a refresh is in flight.
func (h *GameHandler) ListGames(c *gin.Context) {
	groups := h.catalog.Providers()

	var providers []gin.H
	for _, group := range groups {
		variants := group.Variants()

		games := make([]gin.H, 0, len(variants))
		for _, variant := range variants {
			games = append(games, variantView(variant))
		}

		providers = append(providers, gin.H{
			"code":  group.Code,
			"games": games,
			"count": len(games),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"providers": providers,
		"count":     len(providers),
	})
}

func (h *GameHandler) LaunchGame(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		ProviderCode string `json:"provider_code" binding:"required"`
		GameCode     string `json:"game_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	session, err := h.engine.Launch(userID, req.ProviderCode, req.GameCode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": gin.H{
			"id":   session.ID,
			"type": session.Type,
			"link": session.Link,
		},
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	user, err := h.redisService.GetUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get user",
			"details": err.Error(),
		})
		return
	}

	currency := h.currencies.Find(user.SelectedCurrency)
	wallet, err := h.redisService.GetWallet(userID, currency.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"currency":      wallet.Currency,
			"balance":       wallet.Balance,
			"display":       currency.FormatDisplay(currency.ConvertTokenToExternal(wallet.Balance)),
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
		},
	})
}

func (h *GameHandler) Deposit(c *gin.Context) {
	h.transfer(c, h.engine.Deposit)
}

func (h *GameHandler) Withdraw(c *gin.Context) {
	h.transfer(c, h.engine.Withdraw)
}

func (h *GameHandler) transfer(c *gin.Context, op func(int64, float64) (float64, error)) {
	userID := c.GetInt64("user_id")

	var req struct {
		Amount float64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	balance, err := op(userID, req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Transfer failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"new_balance": balance,
	})
}

func (h *GameHandler) GetTransactions(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	transactions, err := h.redisService.GetUserTransactions(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get transactions",
			"details": err.Error(),
		})
		return
	}

	var response []gin.H
	for _, tx := range transactions {
		response = append(response, gin.H{
			"id":            tx.ID,
			"type":          tx.Type,
			"amount":        tx.Amount,
			"balance_after": tx.BalanceAfter,
			"currency":      tx.Currency,
			"game_name":     tx.GameName,
			"provider_name": tx.ProviderName,
			"description":   tx.Description,
			"created_at":    tx.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": response,
		"count":        len(response),
	})
}

func variantView(variant models.GameVariant) gin.H {
	return gin.H{
		"id":         variant.ID(),
		"game_code":  variant.GameCode(),
		"name":       variant.Name(),
		"icon":       variant.Icon(),
		"image":      variant.Image(),
		"categories": variant.Categories(),
		"provider": gin.H{
			"code": variant.ProviderCode(),
			"name": variant.ProviderName(),
		},
	}
}
