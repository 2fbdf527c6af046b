package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	inquirydomain "github.com/renolink/renolink/internal/inquiry/domain"
)

func (s *Server) CreateInquiry(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req inquirydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TenantID = tenantID

	inquiry, err := s.inquirySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

func (s *Server) AdminListInquiries(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	inquiries, err := s.inquirySvc.ListByTenant(
		c.Request.Context(),
		tenantID,
		queryInt(c, "limit", 20),
		queryInt(c, "offset", 0),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiries": inquiries})
}

type updateInquiryStatusRequest struct {
	Status inquirydomain.InquiryStatus `json:"status"`
}

func (s *Server) AdminUpdateInquiryStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateInquiryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	inquiry, err := s.inquirySvc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}
