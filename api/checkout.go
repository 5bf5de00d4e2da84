package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/babywearing/lending-backend/checkout"
	"github.com/babywearing/lending-backend/internal/middleware"
	"github.com/babywearing/lending-backend/member"
)

type checkoutResponse struct {
	ID                 uuid.UUID       `json:"id"`
	CarrierInstanceID  uuid.UUID       `json:"carrierInstanceId"`
	MemberID           uuid.UUID       `json:"memberId"`
	Status             checkout.Status `json:"status"`
	RequestedAt        time.Time       `json:"requestedAt"`
	ApprovedAt         *time.Time      `json:"approvedAt,omitempty"`
	DueAt              *time.Time      `json:"dueAt,omitempty"`
	ReturnedAt         *time.Time      `json:"returnedAt,omitempty"`
	RequestedNotes     *string         `json:"requestedNotes,omitempty"`
	ConditionBefore    *string         `json:"conditionBefore,omitempty"`
	ConditionAfter     *string         `json:"conditionAfter,omitempty"`
	ApprovedLengthDays *int            `json:"approvedLengthDays,omitempty"`
	AdminNotes         *string         `json:"adminNotes,omitempty"`
}

func toCheckoutResponse(ck checkout.Checkout) checkoutResponse {
	return checkoutResponse{
		ID:                 ck.ID,
		CarrierInstanceID:  ck.CarrierInstanceID,
		MemberID:           ck.MemberID,
		Status:             ck.Status,
		RequestedAt:        ck.RequestedAt,
		ApprovedAt:         ck.ApprovedAt,
		DueAt:              ck.DueAt,
		ReturnedAt:         ck.ReturnedAt,
		RequestedNotes:     ck.RequestedNotes,
		ConditionBefore:    ck.ConditionBefore,
		ConditionAfter:     ck.ConditionAfter,
		ApprovedLengthDays: ck.ApprovedLengthDays,
		AdminNotes:         ck.AdminNotes,
	}
}

type requestCheckoutRequest struct {
	Notes *string `json:"notes"`
}

// requestCheckoutHandler opens a pending checkout for the caller. The
// membership gate runs first; the engine re-checks instance availability
// under lock.
func (a *API) requestCheckoutHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := a.identity(c)
	if !ok {
		return
	}

	instanceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid instance id"})
		return
	}

	var req requestCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	m, err := a.cfg.Members.ActiveMember(c, id.UserID)
	switch {
	case errors.Is(err, member.ErrNotMember):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "NOT_A_MEMBER", "message": "You must be a member to request a checkout"})
		return
	case errors.Is(err, member.ErrInactive):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "MEMBERSHIP_INACTIVE", "message": "Your membership is not active"})
		return
	case err != nil:
		logger.ErrorContext(c, "failed to resolve member", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ck, err := a.cfg.Checkouts.Request(c, instanceID, m.ID, req.Notes)
	switch {
	case errors.Is(err, checkout.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "INSTANCE_NOT_FOUND", "message": "Instance not found"})
		return
	case errors.Is(err, checkout.ErrInstanceUnavailable):
		c.JSON(http.StatusConflict, gin.H{"code": "INSTANCE_UNAVAILABLE", "message": "Instance is not available"})
		return
	case errors.Is(err, checkout.ErrAlreadyRequested):
		c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_REQUESTED", "message": "You already have a pending request for this instance"})
		return
	case err != nil:
		logger.ErrorContext(c, "failed to request checkout", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	middleware.CountCheckoutTransition(string(ck.Status))
	c.JSON(http.StatusCreated, toCheckoutResponse(ck))
}

// myCheckoutsHandler lists the caller's checkouts, optionally filtered by
// status. A user with no member row simply has none.
func (a *API) myCheckoutsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := a.identity(c)
	if !ok {
		return
	}

	var statusPtr *checkout.Status
	if s := c.Query("status"); s != "" {
		status := checkout.Status(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_STATUS", "message": "Unknown checkout status"})
			return
		}
		statusPtr = &status
	}

	m, err := a.cfg.Members.GetByUserID(c, id.UserID)
	if errors.Is(err, member.ErrNotMember) {
		c.JSON(http.StatusOK, []checkoutResponse{})
		return
	}
	if err != nil {
		logger.ErrorContext(c, "failed to resolve member", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	checkouts, err := a.cfg.Checkouts.ListByMember(c, m.ID, statusPtr)
	if err != nil {
		logger.ErrorContext(c, "failed to list checkouts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]checkoutResponse, 0, len(checkouts))
	for _, ck := range checkouts {
		resp = append(resp, toCheckoutResponse(ck))
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) cancelCheckoutHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := a.identity(c)
	if !ok {
		return
	}

	checkoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid checkout id"})
		return
	}

	m, err := a.cfg.Members.GetByUserID(c, id.UserID)
	if errors.Is(err, member.ErrNotMember) {
		c.JSON(http.StatusForbidden, gin.H{"code": "NOT_AUTHORIZED", "message": "Not authorized to cancel this checkout"})
		return
	}
	if err != nil {
		logger.ErrorContext(c, "failed to resolve member", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ck, err := a.cfg.Checkouts.Cancel(c, checkoutID, m.ID)
	switch {
	case errors.Is(err, checkout.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "CHECKOUT_NOT_FOUND", "message": "Checkout not found"})
		return
	case errors.Is(err, checkout.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"code": "NOT_AUTHORIZED", "message": "Not authorized to cancel this checkout"})
		return
	case errors.Is(err, checkout.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"code": "NOT_PENDING", "message": "Only pending requests can be canceled"})
		return
	case err != nil:
		logger.ErrorContext(c, "failed to cancel checkout", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	middleware.CountCheckoutTransition(string(ck.Status))
	c.JSON(http.StatusOK, toCheckoutResponse(ck))
}

type adminCheckoutResponse struct {
	checkoutResponse
	MemberUserID string  `json:"memberUserId"`
	CarrierBrand string  `json:"carrierBrand"`
	CarrierModel *string `json:"carrierModel,omitempty"`
	CarrierType  string  `json:"carrierType"`
}

func (a *API) adminListCheckoutsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	details, err := a.cfg.Checkouts.List(c)
	if err != nil {
		logger.ErrorContext(c, "failed to list checkouts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]adminCheckoutResponse, 0, len(details))
	for _, d := range details {
		resp = append(resp, adminCheckoutResponse{
			checkoutResponse: toCheckoutResponse(d.Checkout),
			MemberUserID:     d.MemberUserID,
			CarrierBrand:     d.CarrierBrand,
			CarrierModel:     d.CarrierModel,
			CarrierType:      d.CarrierType,
		})
	}
	c.JSON(http.StatusOK, resp)
}

type approveCheckoutRequest struct {
	ApprovedLengthDays int     `json:"approvedLengthDays" binding:"required"`
	ConditionBefore    *string `json:"conditionBefore"`
	AdminNotes         *string `json:"adminNotes"`
}

func (a *API) approveCheckoutHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	checkoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid checkout id"})
		return
	}

	var req approveCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	ck, err := a.cfg.Checkouts.Approve(c, checkoutID, req.ApprovedLengthDays, req.ConditionBefore, req.AdminNotes)
	switch {
	case errors.Is(err, checkout.ErrInvalidLength):
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_LENGTH", "message": "Approved length must be at least one day"})
		return
	case errors.Is(err, checkout.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "CHECKOUT_NOT_FOUND", "message": "Checkout not found"})
		return
	case errors.Is(err, checkout.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"code": "NOT_PENDING", "message": "Only pending requests can be approved"})
		return
	case errors.Is(err, checkout.ErrAlreadyCheckedOut):
		c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_CHECKED_OUT", "message": "Instance already has an approved checkout"})
		return
	case err != nil:
		logger.ErrorContext(c, "failed to approve checkout", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	middleware.CountCheckoutTransition(string(ck.Status))
	c.JSON(http.StatusOK, toCheckoutResponse(ck))
}

type adminNotesRequest struct {
	AdminNotes *string `json:"adminNotes"`
}

func (a *API) denyCheckoutHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	checkoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid checkout id"})
		return
	}

	var req adminNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	ck, err := a.cfg.Checkouts.Deny(c, checkoutID, req.AdminNotes)
	switch {
	case errors.Is(err, checkout.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "CHECKOUT_NOT_FOUND", "message": "Checkout not found"})
		return
	case errors.Is(err, checkout.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"code": "NOT_PENDING", "message": "Only pending requests can be denied"})
		return
	case err != nil:
		logger.ErrorContext(c, "failed to deny checkout", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	middleware.CountCheckoutTransition(string(ck.Status))
	c.JSON(http.StatusOK, toCheckoutResponse(ck))
}

type returnCheckoutRequest struct {
	ConditionAfter *string `json:"conditionAfter"`
}

func (a *API) returnCheckoutHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	checkoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid checkout id"})
		return
	}

	var req returnCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	ck, err := a.cfg.Checkouts.MarkReturned(c, checkoutID, req.ConditionAfter)
	switch {
	case errors.Is(err, checkout.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "CHECKOUT_NOT_FOUND", "message": "Checkout not found"})
		return
	case errors.Is(err, checkout.ErrNotApproved):
		c.JSON(http.StatusConflict, gin.H{"code": "NOT_APPROVED", "message": "Only approved checkouts can be returned"})
		return
	case err != nil:
		logger.ErrorContext(c, "failed to mark checkout returned", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	middleware.CountCheckoutTransition(string(ck.Status))
	c.JSON(http.StatusOK, toCheckoutResponse(ck))
}

func (a *API) forceReturnCheckoutHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	if !a.cfg.AllowForceReturn {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORCE_RETURN_DISABLED", "message": "Force return is disabled"})
		return
	}

	checkoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid checkout id"})
		return
	}

	var req adminNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	ck, err := a.cfg.Checkouts.ForceReturn(c, checkoutID, req.AdminNotes)
	switch {
	case errors.Is(err, checkout.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "CHECKOUT_NOT_FOUND", "message": "Checkout not found"})
		return
	case errors.Is(err, checkout.ErrNotApproved):
		c.JSON(http.StatusConflict, gin.H{"code": "NOT_APPROVED", "message": "Only approved checkouts can be force-returned"})
		return
	case err != nil:
		logger.ErrorContext(c, "failed to force-return checkout", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	middleware.CountCheckoutTransition(string(ck.Status))
	c.JSON(http.StatusOK, toCheckoutResponse(ck))
}
