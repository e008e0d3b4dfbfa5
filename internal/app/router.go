package app

import (
	"edu_progress_backend/docs"
	"edu_progress_backend/internal/middleware"
	"edu_progress_backend/pkg/monitoring"
	"edu_progress_backend/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 认证之后按学习者限流
	api := router.Group("/api")
	api.Use(
		middleware.AuthMiddleware(a.Config.JWT.Secret),
		security.RateLimiter(a.limiter, middleware.LearnerKey),
	)
	{
		a.registerProgressRoutes(api, c)
		a.registerCatalogRoutes(api, c)
	}
}

func (a *App) registerProgressRoutes(api *gin.RouterGroup, c *controllers) {
	p := api.Group("/progress")
	{
		p.GET("/overall", c.progress.GetOverallProgress)
		p.GET("/daily-time", c.progress.GetDailyTime)
		p.DELETE("", c.progress.ResetProgress)
		p.POST("/export", c.progress.Export)

		p.GET("/subjects/:subjectId", c.progress.GetSubjectProgress)
		p.GET("/subjects/:subjectId/completed", c.progress.GetCompletedChapters)

		chapter := p.Group("/subjects/:subjectId/chapters/:chapterId")
		{
			chapter.GET("", c.progress.GetChapterProgress)
			chapter.PATCH("", c.progress.UpdateChapterProgress)
			chapter.POST("/page", c.progress.AdvancePage)
			chapter.POST("/quizzes/:page", c.progress.CompleteQuiz)
			chapter.POST("/test/start", c.progress.StartTest)
			chapter.POST("/test", c.progress.CompleteTest)
			chapter.GET("/unlocked", c.progress.IsChapterUnlocked)
			chapter.PUT("/timer", c.progress.SetTimer)
		}
	}
}

func (a *App) registerCatalogRoutes(api *gin.RouterGroup, c *controllers) {
	cat := api.Group("/catalog")
	{
		cat.GET("/subjects", c.catalog.ListSubjects)
		cat.GET("/subjects/:subjectId/chapters", c.catalog.ListChapters)
	}
}
