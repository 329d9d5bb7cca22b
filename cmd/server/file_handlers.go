package main

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/filedepot/filedepot/cmd/server/middleware"
	"github.com/filedepot/filedepot/internal/catalog"
	"github.com/filedepot/filedepot/pkg/types"
)

func handlePostFiles(catalogService *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req types.CreateFileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name"})
			return
		}

		parentID, ok := parseParentID(req.ParentID)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parent not found"})
			return
		}

		var content []byte
		if req.Data != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.Data)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
				return
			}
			content = decoded
		}

		node, err := catalogService.CreateNode(c.Request.Context(), catalog.CreateNodeParams{
			OwnerID:  userID,
			Name:     req.Name,
			Kind:     types.NodeKind(req.Type),
			ParentID: parentID,
			IsPublic: req.IsPublic,
			Content:  content,
		})
		if err != nil {
			var ve *catalog.ValidationError
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
				return
			}
			internalError(c, err)
			return
		}

		c.JSON(http.StatusCreated, types.NewNodeView(node))
	}
}

func handleGetFile(catalogService *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		node, err := catalogService.GetNode(c.Request.Context(), id, userID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			internalError(c, err)
			return
		}

		c.JSON(http.StatusOK, types.NewNodeView(node))
	}
}

func handleListFiles(catalogService *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		views := []types.NodeView{}

		parentID, ok := parseParentID(c.Query("parentId"))
		if !ok {
			// An unparsable parent matches nothing, same as an unknown one.
			c.JSON(http.StatusOK, views)
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
		if err != nil {
			page = 0
		}

		nodes, err := catalogService.ListNodes(c.Request.Context(), userID, parentID, page)
		if err != nil {
			internalError(c, err)
			return
		}

		for _, node := range nodes {
			views = append(views, types.NewNodeView(node))
		}
		c.JSON(http.StatusOK, views)
	}
}

func handleSetVisibility(catalogService *catalog.Service, public bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		node, err := catalogService.SetVisibility(c.Request.Context(), id, userID, public)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			internalError(c, err)
			return
		}

		c.JSON(http.StatusOK, types.NewNodeView(node))
	}
}

func handleGetFileData(catalogService *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Anonymous callers are allowed; visibility decides below.
		requesterID, _ := middleware.UserIDFromContext(c)

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		width := 0
		if size := c.Query("size"); size != "" {
			width, err = strconv.Atoi(size)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid size"})
				return
			}
		}

		content, mimeType, err := catalogService.GetContent(c.Request.Context(), id, requesterID, width)
		if err != nil {
			var ve *catalog.ValidationError
			switch {
			case errors.As(err, &ve):
				c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
			case errors.Is(err, catalog.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			default:
				internalError(c, err)
			}
			return
		}

		c.Data(http.StatusOK, mimeType, content)
	}
}

// parseParentID maps the wire form of a parent reference to a node id.
// Absent and "0" mean the root.
func parseParentID(raw string) (uuid.UUID, bool) {
	if raw == "" || raw == "0" {
		return types.RootParentID, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
