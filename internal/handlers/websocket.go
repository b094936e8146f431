package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"casino-aggregator-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes balance updates to their owner and settled rounds
// to every connected client. It is the live-feed EventSink the settlement
// engine emits into.
type WebSocketHandler struct {
	redisService *services.RedisService
	currencies   *services.CurrencyRegistry
	hub          *WebSocketHub
	logger       *logrus.Logger
}

type WebSocketHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	logger     *logrus.Logger
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(redisService *services.RedisService, currencies *services.CurrencyRegistry, logger *logrus.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		logger:     logger,
	}

	go hub.run()

	return &WebSocketHandler{
		redisService: redisService,
		currencies:   currencies,
		hub:          hub,
		logger:       logger,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).Warn("websocket read failed")
			}
			break
		}

		if msg.Type == "PING" {
			h.sendPong(client)
		}
	}
}

func (h *WebSocketHandler) sendBalance(client *Client) {
	user, err := h.redisService.GetUser(client.UserID)
	if err != nil {
		h.logger.WithError(err).Warn("failed to load user for ws")
		return
	}

	currency := h.currencies.Find(user.SelectedCurrency)
	wallet, err := h.redisService.GetWallet(client.UserID, currency.ID)
	if err != nil {
		h.logger.WithError(err).Warn("failed to load wallet for ws")
		return
	}

	client.Conn.WriteJSON(Message{
		Type:   "BALANCE_UPDATE",
		UserID: client.UserID,
		Data: gin.H{
			"currency":      wallet.Currency,
			"balance":       wallet.Balance,
			"display":       currency.FormatDisplay(currency.ConvertTokenToExternal(wallet.Balance)),
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
			"timestamp":     time.Now().Unix(),
		},
	})
}

func (h *WebSocketHandler) sendPong(client *Client) {
	client.Conn.WriteJSON(Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	})
}

// EmitBalanceChange delivers the new balance to the owning user's socket.
func (h *WebSocketHandler) EmitBalanceChange(event services.BalanceChangeEvent) error {
	h.hub.broadcast <- &Message{
		Type:   "BALANCE_UPDATE",
		UserID: event.UserID,
		Data: gin.H{
			"currency":  event.Currency,
			"direction": event.Direction,
			"amount":    event.Amount,
			"balance":   event.Balance,
			"timestamp": time.Now().Unix(),
		},
	}
	return nil
}

// EmitLiveFeed fans a settled round out to every connected client.
func (h *WebSocketHandler) EmitLiveFeed(event services.LiveFeedEvent) error {
	h.hub.broadcast <- &Message{
		Type: "LIVE_FEED",
		Data: gin.H{
			"game_id":       event.GameID,
			"game_name":     event.GameName,
			"provider_name": event.ProviderName,
			"round_id":      event.RoundID,
			"wager":         event.Wager,
			"profit":        event.Profit,
			"multiplier":    event.Multiplier,
			"timestamp":     time.Now().Unix(),
		},
	}
	return nil
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			hub.logger.WithField("user_id", client.UserID).Debug("client registered")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.UserID]; ok {
				delete(hub.clients, client.UserID)
				hub.logger.WithField("user_id", client.UserID).Debug("client unregistered")
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	if message.UserID != 0 {
		if conn, ok := hub.clients[message.UserID]; ok {
			conn.WriteJSON(message)
		}
		return
	}
	for _, conn := range hub.clients {
		conn.WriteJSON(message)
	}
}
