package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ragkb/ragkb/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Documents     *DocumentHandler
	Jobs          *JobHandler
	Ask           *AskHandler
	JWTSecret     []byte
	AskRatePerMin int
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/documents", deps.Documents.Create)
	authGroup.POST("/documents/upload", deps.Documents.Upload)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.GET("/documents/:id/chunks", deps.Documents.Chunks)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)
	authGroup.POST("/documents/:id/index", deps.Documents.Index)

	authGroup.GET("/jobs/:id", deps.Jobs.Get)

	askGroup := authGroup.Group("")
	askGroup.Use(middleware.RateLimit(deps.AskRatePerMin, time.Minute))
	askGroup.POST("/ask", deps.Ask.Ask)
}
