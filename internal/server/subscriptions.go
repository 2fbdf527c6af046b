package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/renolink/renolink/internal/subscription/domain"
)

// StartCheckout opens a hosted checkout session for the tenant. The
// subscription row itself is created by the provider webhook once the
// session completes.
func (s *Server) StartCheckout(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req subscriptiondomain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TenantID = tenantID

	result, err := s.subscriptionSvc.StartCheckout(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req subscriptiondomain.CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	sub, err := s.subscriptionSvc.Cancel(c.Request.Context(), tenantID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) ResumeSubscription(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	sub, err := s.subscriptionSvc.Resume(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) GetSubscription(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	sub, err := s.subscriptionSvc.GetForTenant(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) ListTenantPayments(c *gin.Context) {
	tenantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	payments, err := s.subscriptionSvc.ListPayments(c.Request.Context(), tenantID, queryInt(c, "limit", 50))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
