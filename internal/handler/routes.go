package handler

import "github.com/gin-gonic/gin"

// Handlers groups the handlers registered on the router
type Handlers struct {
	Episode   *EpisodeHandler
	Analytics *AnalyticsHandler
	Screening *ScreeningHandler
	Status    *StatusHandler
}

// RegisterRoutes mounts all API routes on the router
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", h.Status.GetHealth)

	v1 := r.Group("/api/v1")

	episodes := v1.Group("/episodes")
	episodes.POST("", h.Episode.CreateEpisode)
	episodes.GET("", h.Episode.ListEpisodes)
	episodes.GET("/:id", h.Episode.GetEpisode)
	episodes.PUT("/:id", h.Episode.UpdateEpisode)
	episodes.POST("/:id/complete", h.Episode.CompleteEpisode)
	episodes.DELETE("/:id", h.Episode.DeleteEpisode)

	analytics := v1.Group("/analytics")
	analytics.GET("/correlations", h.Analytics.GetCorrelations)
	analytics.GET("/medication-overuse", h.Analytics.GetMedicationOveruse)
	analytics.GET("/trends", h.Analytics.GetTrends)

	screening := v1.Group("/screening")
	screening.POST("", h.Screening.SubmitScreening)
	screening.GET("/first-onset", h.Screening.GetFirstOnsetPrompt)
	screening.POST("/first-onset", h.Screening.SubmitFirstOnsetAnswer)

	redFlags := v1.Group("/red-flags")
	redFlags.GET("", h.Screening.ListRedFlags)
	redFlags.POST("/:id/acknowledge", h.Screening.AcknowledgeRedFlag)
}
