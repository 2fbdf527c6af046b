package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contentdomain "github.com/renolink/renolink/internal/content/domain"
)

func (s *Server) GetTenantPosts(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	refresh := strings.TrimSpace(c.Query("refresh"))
	opts := contentdomain.GetOptions{
		ForceRefresh: refresh == "true" || refresh == "1",
		Limit:        queryInt(c, "limit", 0),
	}

	result, err := s.contentSvc.GetPosts(c.Request.Context(), tenantID, opts)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) AdminRefreshTenantContent(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	synced, err := s.contentSvc.Refresh(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

func (s *Server) AdminClearTenantContent(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.contentSvc.Clear(c.Request.Context(), tenantID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AdminTenantContentStats(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	stats, err := s.contentSvc.Stats(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) AdminContentStats(c *gin.Context) {
	stats, err := s.contentSvc.StatsAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
