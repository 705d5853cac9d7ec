package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ucidriver/configs"
	"ucidriver/internal/pool"
)

// NewRouter builds the Gin router, grounded on the teacher's
// cmd/server/main.go wiring (gin.New + gin.Logger/Recovery + cors.New +
// rate-limit middleware + route groups), retargeted at the engine pool and
// PGN conversion instead of game/position analysis.
func NewRouter(cfg *configs.Config, p *pool.Pool) *gin.Engine {
	if cfg.App.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:3001"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(RateLimit(cfg.HTTP.RateLimitPerSecond, cfg.HTTP.RateLimitBurst))

	h := NewHandler(p)
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		engines := api.Group("/engines")
		{
			engines.POST("/:name/bestmove", h.BestMove)
			engines.POST("/:name/evaluate", h.Evaluate)
		}

		api.POST("/pgn/convert", h.ConvertPGN)
	}

	return router
}
