package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/subgate/subgate/internal/invoice/domain"
)

// AdminAuthMiddleware gates the admin surface on the configured identity
// list. Admin identity is asserted by the trusted transport in front of
// this service.
func (s *Server) AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader("X-Admin-ID")), 10, 64)
		if err != nil || !s.cfg.IsAdmin(id) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

type grantRequest struct {
	ExternalID int64 `json:"external_id"`
	Days       int   `json:"days"`
}

func (s *Server) GrantEntitlement(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ExternalID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ent, err := s.billingSvc.GrantAdmin(c.Request.Context(), req.ExternalID, req.Days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"external_id": req.ExternalID,
		"tier":        ent.Tier,
		"expires_at":  ent.ExpiresAt,
	}})
}

func (s *Server) GetStats(c *gin.Context) {
	users, err := s.userSvc.Count(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	confirmed, err := s.invoices.CountByStatus(c.Request.Context(), s.db, invoicedomain.StatusConfirmed)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	pending, err := s.invoices.CountByStatus(c.Request.Context(), s.db, invoicedomain.StatusPending)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	operations, err := s.userSvc.TotalOperations(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"users":              users,
		"confirmed_invoices": confirmed,
		"pending_invoices":   pending,
		"operations":         operations,
	}})
}
