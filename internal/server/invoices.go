package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ConfirmInvoice(c *gin.Context) {
	invoiceID := strings.TrimSpace(c.Param("invoice_id"))
	if invoiceID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	outcome, err := s.billingSvc.Confirm(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": outcome})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	invoiceID := strings.TrimSpace(c.Param("invoice_id"))
	if invoiceID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.billingSvc.Cancel(c.Request.Context(), invoiceID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "CANCELED"}})
}
