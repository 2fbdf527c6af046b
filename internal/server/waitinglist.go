package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	waitinglistdomain "github.com/renolink/renolink/internal/waitinglist/domain"
)

func (s *Server) EnqueueWaitingList(c *gin.Context) {
	var req waitinglistdomain.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.waitingListSvc.Enqueue(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) GetWaitingListPosition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	position, err := s.waitingListSvc.Position(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": position})
}

func (s *Server) AdminListWaitingList(c *gin.Context) {
	status := waitinglistdomain.EntryStatus(strings.TrimSpace(c.Query("status")))
	entries, err := s.waitingListSvc.List(c.Request.Context(), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) AdminInviteWaitingListEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := s.waitingListSvc.Transition(c.Request.Context(), id, waitinglistdomain.StatusInvited)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) AdminExpireWaitingListEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := s.waitingListSvc.Transition(c.Request.Context(), id, waitinglistdomain.StatusExpired)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
