package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter собирает маршруты HTTP API. metricsHandler может быть nil.
func NewRouter(auth *AuthHandler, orders *OrderHandler, tokens TokenParser, metricsHandler http.Handler, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	authGroup := router.Group("/auth")
	authGroup.POST("/login", auth.StartLogin)
	authGroup.GET("/login/:email", auth.LoginState)
	authGroup.POST("/verify", auth.VerifyLogin)

	orderGroup := router.Group("/orders", RequireAuth(tokens))
	orderGroup.POST("", orders.CreateOrder)
	orderGroup.GET("/:referenceId", orders.GetOrder)
	orderGroup.DELETE("/:referenceId", orders.CancelOrder)

	router.POST("/webhooks/payment", orders.PaymentWebhook)
	return router
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP-запрос")
	}
}
