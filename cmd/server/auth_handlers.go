package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filedepot/filedepot/cmd/server/middleware"
	"github.com/filedepot/filedepot/internal/auth"
	"github.com/filedepot/filedepot/pkg/types"
)

func handlePostUsers(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
			return
		}
		if req.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
			return
		}
		if req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing password"})
			return
		}

		user, err := authService.Register(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrAlreadyExists) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Already exists"})
				return
			}
			internalError(c, err)
			return
		}

		c.JSON(http.StatusCreated, types.UserView{ID: user.ID, Email: user.Email})
	}
}

func handleConnect(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		token, err := authService.Connect(c.Request.Context(), email, password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			internalError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func handleDisconnect(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(middleware.TokenHeader)

		if err := authService.Disconnect(c.Request.Context(), token); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			internalError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func handleGetMe(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		user, err := authService.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			internalError(c, err)
			return
		}

		c.JSON(http.StatusOK, types.UserView{ID: user.ID, Email: user.Email})
	}
}
