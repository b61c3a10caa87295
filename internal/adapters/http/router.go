package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Speak/internal/adapters/signal"
	"github.com/dkeye/Speak/internal/app"
	"github.com/dkeye/Speak/internal/config"
	"github.com/dkeye/Speak/internal/core"
	"github.com/dkeye/Speak/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable opaque session token;
// it becomes the websocket session id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, history core.CallHistory) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SpeakSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": orch.Registry.Count()})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	ctrl := signal.NewSignalWSController(orch, cfg.ReadLimit, cfg.TTSLang, cfg.CallRateLimit, cfg.CallRateWindow)
	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/calls/recent", func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "user_id is required"})
			return
		}
		records, err := history.RecentForUser(c.Request.Context(), domain.UserID(userID), cfg.HistoryLimit)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("recent calls query")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load call history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"calls": records})
	})

	return r
}
