package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/filedepot/filedepot/cmd/server/middleware"
	"github.com/filedepot/filedepot/internal/auth"
	"github.com/filedepot/filedepot/internal/catalog"
	"github.com/filedepot/filedepot/internal/sessions"
)

// probe answers a liveness question about a backing service.
type probe func(ctx context.Context) bool

func setupRouter(
	authService *auth.Service,
	catalogService *catalog.Service,
	sessionStore *sessions.Store,
	redisAlive probe,
	dbAlive probe,
) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())

	router.GET("/status", handleStatus(redisAlive, dbAlive))
	router.GET("/stats", handleStats(authService, catalogService))

	router.POST("/users", handlePostUsers(authService))
	router.GET("/connect", handleConnect(authService))

	authed := router.Group("/")
	authed.Use(middleware.TokenAuth(sessionStore))
	{
		authed.GET("/disconnect", handleDisconnect(authService))
		authed.GET("/users/me", handleGetMe(authService))

		authed.POST("/files", handlePostFiles(catalogService))
		authed.GET("/files", handleListFiles(catalogService))
		authed.GET("/files/:id", handleGetFile(catalogService))
		authed.PUT("/files/:id/publish", handleSetVisibility(catalogService, true))
		authed.PUT("/files/:id/unpublish", handleSetVisibility(catalogService, false))
	}

	// Content is served to owners, holders of a public link, and anyone
	// else the visibility rule admits.
	router.GET("/files/:id/data", middleware.OptionalTokenAuth(sessionStore), handleGetFileData(catalogService))

	return router
}

func handleStatus(redisAlive, dbAlive probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"redis": redisAlive(ctx),
			"db":    dbAlive(ctx),
		})
	}
}

func handleStats(authService *auth.Service, catalogService *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		users, err := authService.CountUsers(ctx)
		if err != nil {
			internalError(c, err)
			return
		}
		files, err := catalogService.CountFiles(ctx)
		if err != nil {
			internalError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"users": users, "files": files})
	}
}

// internalError logs the full failure and answers with a generic message.
func internalError(c *gin.Context, err error) {
	log.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
}
