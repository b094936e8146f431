package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"casino-aggregator-backend/internal/models"
	"casino-aggregator-backend/internal/services"
)

// ProviderHandler serves the gold_api callback endpoints. The provider
// contract expects HTTP 200 on every answer; success or rejection lives in
// the JSON body.
type ProviderHandler struct {
	engine  *services.SettlementEngine
	catalog *services.CatalogService
	logger  *logrus.Logger
}

func NewProviderHandler(engine *services.SettlementEngine, catalog *services.CatalogService, logger *logrus.Logger) *ProviderHandler {
	return &ProviderHandler{
		engine:  engine,
		catalog: catalog,
		logger:  logger,
	}
}

func (h *ProviderHandler) UserBalance(c *gin.Context) {
	var req struct {
		UserCode string `json:"user_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserCode == "" {
		c.JSON(http.StatusOK, gin.H{
			"status":       false,
			"user_balance": 0,
			"msg":          models.MsgInvalidUser,
		})
		return
	}

	h.logger.WithField("user_code", req.UserCode).Info("user_balance called")

	balance, err := h.engine.UserBalance(req.UserCode)
	if err == services.ErrUserNotFound {
		c.JSON(http.StatusOK, gin.H{
			"status":       false,
			"user_balance": 0,
			"msg":          models.MsgInvalidUser,
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("user_balance failed")
		c.JSON(http.StatusOK, gin.H{
			"status":       false,
			"user_balance": 0,
			"msg":          models.MsgInternalError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       true,
		"user_balance": balance,
	})
}

func (h *ProviderHandler) GameCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, models.SettlementResult{
			Status:       0,
			Msg:          models.MsgInternalError,
			ErrorMessage: err.Error(),
		})
		return
	}

	envelope, err := models.ParseCallbackEnvelope(body)
	if err != nil {
		h.logger.WithError(err).Warn("malformed game_callback")
		c.JSON(http.StatusOK, models.SettlementResult{
			Status:       0,
			Msg:          models.MsgInternalError,
			ErrorMessage: err.Error(),
		})
		return
	}

	h.logCallback(envelope)

	c.JSON(http.StatusOK, h.engine.Settle(envelope))
}

// logCallback records the decorated callback: the raw payload plus the game
// metadata the cached catalog knows about the game_code.
func (h *ProviderHandler) logCallback(envelope *models.CallbackEnvelope) {
	data, err := envelope.GameData()
	if err != nil {
		return
	}

	fields := logrus.Fields{
		"user_code":     envelope.UserCode,
		"game_type":     envelope.GameType,
		"game_code":     data.GameCode,
		"round_id":      data.RoundID,
		"txn_id":        data.TxnID,
		"txn_type":      data.TxnType,
		"bet":           data.Bet,
		"win":           data.Win,
		"provider_code": data.ProviderCode,
	}
	if variant, ok := h.catalog.FindGameByCode(data.GameCode); ok {
		fields["game_name"] = variant.Name()
		fields["banner"] = variant.Image()
		fields["provider_name"] = variant.ProviderName()
	}
	h.logger.WithFields(fields).Info("game_callback called")
}
