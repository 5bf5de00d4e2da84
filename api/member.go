package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/babywearing/lending-backend/internal/middleware"
	"github.com/babywearing/lending-backend/member"
)

type memberResponse struct {
	ID           uuid.UUID           `json:"id"`
	UserID       string              `json:"userId"`
	Status       member.Status       `json:"status"`
	LastPaidAt   *time.Time          `json:"lastPaidAt,omitempty"`
	PaymentType  *member.PaymentType `json:"paymentType,omitempty"`
	ContactEmail *string             `json:"contactEmail,omitempty"`
	ContactPhone *string             `json:"contactPhone,omitempty"`
	Notes        *string             `json:"notes,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}

func toMemberResponse(m member.Member) memberResponse {
	return memberResponse{
		ID:           m.ID,
		UserID:       m.UserID,
		Status:       m.Status,
		LastPaidAt:   m.LastPaidAt,
		PaymentType:  m.PaymentType,
		ContactEmail: m.ContactEmail,
		ContactPhone: m.ContactPhone,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}

func (a *API) myMembershipHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := a.identity(c)
	if !ok {
		return
	}

	m, err := a.cfg.Members.GetByUserID(c, id.UserID)
	if errors.Is(err, member.ErrNotMember) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_A_MEMBER", "message": "No membership on file"})
		return
	}
	if err != nil {
		logger.ErrorContext(c, "failed to get membership", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toMemberResponse(m))
}

func (a *API) listMembersHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	members, err := a.cfg.Members.List(c)
	if err != nil {
		logger.ErrorContext(c, "failed to list members", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, toMemberResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

type upsertMemberRequest struct {
	Status       string  `json:"status" binding:"required"`
	LastPaidAt   *string `json:"lastPaidAt"`
	PaymentType  *string `json:"paymentType"`
	ContactEmail *string `json:"contactEmail"`
	ContactPhone *string `json:"contactPhone"`
	Notes        *string `json:"notes"`
}

// upsertMemberHandler is the admin data-entry path for memberships, keyed by
// the external identity subject. It records fee payments; it never charges
// anyone.
func (a *API) upsertMemberHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Missing user id"})
		return
	}

	var req upsertMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	m := member.Member{
		UserID:       userID,
		Status:       member.Status(req.Status),
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
	}

	if req.LastPaidAt != nil {
		t, err := time.Parse(time.RFC3339, *req.LastPaidAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid lastPaidAt format"})
			return
		}
		m.LastPaidAt = &t
	}
	if req.PaymentType != nil {
		pt := member.PaymentType(*req.PaymentType)
		m.PaymentType = &pt
	}

	err := a.cfg.Members.Upsert(c, &m)
	if errors.Is(err, member.ErrInvalidStatus) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_STATUS", "message": "Unknown member status"})
		return
	}
	if err != nil {
		logger.ErrorContext(c, "failed to upsert member", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toMemberResponse(m))
}
