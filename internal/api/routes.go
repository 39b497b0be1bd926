package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quizgenai/internal/api/handlers"
	"quizgenai/internal/config"
	"quizgenai/internal/metrics"
)

// SetupRoutes sets up the API routes. Session middleware, when used, must be
// installed on router before this is called.
func SetupRoutes(router *gin.Engine, h *handlers.Handler, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) {
	router.Use(RequestLogger(log))
	router.Use(CORSMiddleware(cfg.Server.FrontendURL))
	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", m.Handler())
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limit := RateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// --- Google login ---
	router.GET("/login", h.HandleGoogleLogin)
	router.GET("/auth/google/callback", h.HandleGoogleCallback)

	api := router.Group("/api")
	api.Use(Timeout(cfg.Server.RequestTimeout))
	{
		// Public
		api.POST("/auth/register", limit, h.HandleRegister)
		api.POST("/auth/login", limit, h.HandleLogin)
		api.GET("/auth/status", h.HandleAuthStatus)
		api.GET("/quizzes/:quizId", h.HandleGetQuiz)

		authorized := api.Group("/")
		authorized.Use(AuthRequired(h.Tokens))
		{
			authorized.GET("/auth/me", h.HandleMe)
			authorized.POST("/logout", h.HandleLogout)

			authorized.POST("/quizzes/generate", limit, h.HandleGenerateQuiz)
			authorized.POST("/quizzes/generate/upload", limit, h.HandleGenerateFromUpload)
			authorized.POST("/extract", limit, h.HandleExtract)
			authorized.POST("/quizzes", h.HandleCreateQuiz)
			authorized.GET("/quizzes", h.HandleListUserQuizzes)
			authorized.DELETE("/quizzes/:quizId", h.HandleDeleteQuiz)
			authorized.POST("/quizzes/:quizId/submit", h.HandleSubmitQuiz)

			authorized.GET("/history", h.HandleListHistory)
			authorized.GET("/history/:entryId", h.HandleGetHistoryEntry)

			admin := authorized.Group("/admin")
			admin.Use(AdminOnly())
			{
				admin.GET("/users", h.HandleAdminListUsers)
				admin.GET("/quizzes", h.HandleAdminListQuizzes)
			}
		}
	}
}
