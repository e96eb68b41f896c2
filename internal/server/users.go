package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/subgate/subgate/internal/entitlement/domain"
	"github.com/subgate/subgate/internal/operation"
)

type profileEntitlement struct {
	Active    bool       `json:"active"`
	Tier      string     `json:"tier"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	DaysLeft  *int       `json:"days_left,omitempty"`
}

type profileResponse struct {
	ExternalID     int64              `json:"external_id"`
	Handle         string             `json:"handle,omitempty"`
	OperationCount int64              `json:"operation_count"`
	Entitlement    profileEntitlement `json:"entitlement"`
	RegisteredAt   time.Time          `json:"registered_at"`
}

func (s *Server) GetProfile(c *gin.Context) {
	externalID, ok := externalIDParam(c)
	if !ok {
		return
	}

	user, err := s.userSvc.Ensure(c.Request.Context(), externalID, strings.TrimSpace(c.Query("handle")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ent, err := s.entitlementSvc.Get(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	active, err := s.entitlementSvc.HasAccess(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := profileResponse{
		ExternalID:     user.ExternalID,
		Handle:         user.Handle,
		OperationCount: user.OperationCount,
		RegisteredAt:   user.CreatedAt,
		Entitlement: profileEntitlement{
			Active: active,
			Tier:   string(ent.Tier),
		},
	}
	if active && ent.ExpiresAt != nil && !ent.Tier.Perpetual() {
		resp.Entitlement.ExpiresAt = ent.ExpiresAt
		days := int(ent.ExpiresAt.Sub(s.clock.Now()).Hours() / 24)
		resp.Entitlement.DaysLeft = &days
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type purchaseRequest struct {
	Tier string `json:"tier"`
}

type invoiceResponse struct {
	InvoiceID string    `json:"invoice_id"`
	Tier      string    `json:"tier"`
	Amount    string    `json:"amount"`
	Asset     string    `json:"asset"`
	PayURL    string    `json:"pay_url"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) PurchaseTier(c *gin.Context) {
	externalID, ok := externalIDParam(c)
	if !ok {
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	tier, ok := entitlementdomain.ParseTier(strings.ToUpper(strings.TrimSpace(req.Tier)))
	if !ok {
		AbortWithError(c, entitlementdomain.ErrInvalidTier)
		return
	}

	inv, err := s.billingSvc.Purchase(c.Request.Context(), externalID, tier)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoiceResponse{
		InvoiceID: inv.ProcessorInvoiceID,
		Tier:      string(inv.Tier),
		Amount:    inv.Amount.String(),
		Asset:     inv.Asset,
		PayURL:    inv.PayURL,
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt,
	}})
}

type operationRequest struct {
	Payload string `json:"payload"`
}

func (s *Server) RunOperation(c *gin.Context) {
	externalID, ok := externalIDParam(c)
	if !ok {
		return
	}

	var req operationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.userSvc.Ensure(c.Request.Context(), externalID, "")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	allowed, err := s.entitlementSvc.HasAccess(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !allowed {
		AbortWithError(c, ErrForbidden)
		return
	}

	result, err := s.runner.Run(c.Request.Context(), operation.Request{
		ExternalID: externalID,
		Payload:    req.Payload,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.userSvc.RecordOperation(c.Request.Context(), externalID); err != nil {
		AbortWithError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncGatedOperations()
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func externalIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("external_id")), 10, 64)
	if err != nil || id == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return id, true
}
