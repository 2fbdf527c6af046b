package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandlePaymentWebhook ingests a provider delivery. The raw body is read
// before any parsing because signature verification runs over the exact
// bytes the provider signed.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := c.Param("provider")

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.paymentSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
