package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"casino-aggregator-backend/internal/config"
	"casino-aggregator-backend/internal/handlers"
	"casino-aggregator-backend/internal/middleware"
	"casino-aggregator-backend/internal/services"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)
	currencies := services.NewCurrencyRegistry(cfg)

	providerClient := services.NewProviderClient(cfg, logger)
	catalogService := services.NewCatalogService(redisService, providerClient, logger, cfg.CrawlPace)

	var analytics services.AnalyticsPublisher = services.NoopAnalytics{}
	if cfg.AMQPURL != "" {
		amqpAnalytics, err := services.NewAMQPAnalytics(cfg.AMQPURL, logger)
		if err != nil {
			logger.WithError(err).Warn("analytics disabled, broker unreachable")
		} else {
			analytics = amqpAnalytics
			defer amqpAnalytics.Close()
		}
	}

	wsHandler := handlers.NewWebSocketHandler(redisService, currencies, logger)

	engine := services.NewSettlementEngine(
		redisService,
		providerClient,
		catalogService,
		currencies,
		wsHandler,
		analytics,
		logger,
	)

	authHandler := handlers.NewAuthHandler(redisService, jwtService, currencies)
	gameHandler := handlers.NewGameHandler(engine, catalogService, redisService, currencies)
	providerHandler := handlers.NewProviderHandler(engine, catalogService, logger)

	if cfg.CatalogWarmInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.CatalogWarmInterval)
			defer ticker.Stop()

			for range ticker.C {
				catalogService.Providers()
			}
		}()
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Provider callbacks: unauthenticated by protocol, always HTTP 200.
	router.POST("/gold_api/user_balance", providerHandler.UserBalance)
	router.POST("/gold_api/game_callback", providerHandler.GameCallback)

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.GET("/list", gameHandler.ListGames)
			games.POST("/launch", gameHandler.LaunchGame)
		}

		wallet := protected.Group("/wallet")
		{
			wallet.GET("/balance", gameHandler.GetBalance)
			wallet.GET("/transactions", gameHandler.GetTransactions)
			wallet.POST("/deposit", gameHandler.Deposit)
			wallet.POST("/withdraw", gameHandler.Withdraw)
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	logger.Infof("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
