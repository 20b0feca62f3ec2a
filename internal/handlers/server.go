package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prajyotgorlewar/BattleIDE/internal/global"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/wss"
	"github.com/prajyotgorlewar/BattleIDE/internal/wss/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const requestIDKey = "requestId"

type RouterConfig struct {
	AllowedOrigins []string
	// SocketAuth requires a token on the /ws handshake.
	SocketAuth bool
	// Gatherer backs /metrics; nil omits the route.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewRouter builds the HTTP surface: health, metrics, the user API and the
// realtime socket.
func NewRouter(state *global.State, dispatcher *wss.Dispatcher, cfg RouterConfig) *gin.Engine {
	log := logger.OrNop(cfg.Logger)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log.Named("http")), state.Metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowAllOrigins:  len(cfg.AllowedOrigins) == 0,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: len(cfg.AllowedOrigins) > 0,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": state.Registry.Count()})
	})
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	var socketAuth *middleware.AuthMiddleware
	if cfg.SocketAuth {
		socketAuth = middleware.NewAuthMiddleware(state.JwtManager)
	}
	r.GET("/ws", gin.WrapF(wss.WsHandler(dispatcher, state, wss.HandlerConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Auth:           socketAuth,
		Logger:         log,
	})))

	users := NewUsersHandler(state.Users, log)
	api := r.Group("/api/users", BearerAuth(state.JwtManager, log))
	api.GET("/me", users.Me)
	api.GET("/leaderboard", users.Leaderboard)

	return r
}

// RequestID returns the id assigned to the request by the router.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		log.Debug("request",
			zap.String("requestId", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
