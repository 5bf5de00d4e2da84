package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/babywearing/lending-backend/carrier"
	"github.com/babywearing/lending-backend/internal/middleware"
	"github.com/babywearing/lending-backend/internal/qrcode"
	"github.com/babywearing/lending-backend/inventory"
	"github.com/babywearing/lending-backend/member"
)

type instanceResponse struct {
	ID             uuid.UUID        `json:"id"`
	CarrierID      uuid.UUID        `json:"carrierId"`
	SerialNumber   *string          `json:"serialNumber,omitempty"`
	Status         inventory.Status `json:"status"`
	ConditionNotes *string          `json:"conditionNotes,omitempty"`
	Issues         *string          `json:"issues,omitempty"`
	Location       *string          `json:"location,omitempty"`
	ImageURL       *string          `json:"imageUrl,omitempty"`
	QRCodeValue    *string          `json:"qrCodeValue,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type instanceDetailResponse struct {
	instanceResponse
	Carrier          carrierResponse  `json:"carrier"`
	Available        bool             `json:"available"`
	Reviews          []reviewResponse `json:"reviews"`
	PendingRequestID *uuid.UUID       `json:"pendingRequestId,omitempty"`
}

func toInstanceResponse(in inventory.Instance) instanceResponse {
	return instanceResponse{
		ID:             in.ID,
		CarrierID:      in.CarrierID,
		SerialNumber:   in.SerialNumber,
		Status:         in.Status,
		ConditionNotes: in.ConditionNotes,
		Issues:         in.Issues,
		Location:       in.Location,
		ImageURL:       in.ImageURL,
		QRCodeValue:    in.QRCodeValue,
		CreatedAt:      in.CreatedAt,
	}
}

// getInstanceHandler is the member detail page behind the QR label: unit
// condition, catalog/safety info, reviews, availability, and the caller's
// own pending request if one exists.
func (a *API) getInstanceHandler(c *gin.Context) {
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

	in, err := a.cfg.Instances.Get(c, instanceID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "INSTANCE_NOT_FOUND", "message": "Instance not found"})
			return
		}
		logger.ErrorContext(c, "failed to get instance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	cr, err := a.cfg.Carriers.Get(c, in.CarrierID)
	if err != nil {
		logger.ErrorContext(c, "failed to get carrier for instance", "instanceId", instanceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	available, err := a.cfg.Instances.IsAvailable(c, instanceID)
	if err != nil {
		logger.ErrorContext(c, "failed to compute availability", "instanceId", instanceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	reviews, err := a.cfg.Reviews.ListByInstance(c, instanceID)
	if err != nil {
		logger.ErrorContext(c, "failed to list reviews", "instanceId", instanceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := instanceDetailResponse{
		instanceResponse: toInstanceResponse(in),
		Carrier:          toCarrierResponse(cr),
		Available:        available,
		Reviews:          toReviewResponses(reviews),
	}

	// Not being a member is fine here; the pending-request marker is just
	// absent.
	m, err := a.cfg.Members.GetByUserID(c, id.UserID)
	if err == nil {
		pending, err := a.cfg.Checkouts.PendingForMember(c, instanceID, m.ID)
		if err != nil {
			logger.ErrorContext(c, "failed to look up pending request", "instanceId", instanceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if pending != nil {
			resp.PendingRequestID = &pending.ID
		}
	} else if !errors.Is(err, member.ErrNotMember) {
		logger.ErrorContext(c, "failed to resolve member", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) adminListInstancesHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	instances, err := a.cfg.Instances.List(c)
	if err != nil {
		logger.ErrorContext(c, "failed to list instances", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	availability, err := a.cfg.Instances.Availability(c)
	if err != nil {
		logger.ErrorContext(c, "failed to compute availability", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	type adminInstanceResponse struct {
		instanceResponse
		CarrierBrand string  `json:"carrierBrand"`
		CarrierModel *string `json:"carrierModel,omitempty"`
		CarrierType  string  `json:"carrierType"`
		Available    bool    `json:"available"`
	}

	resp := make([]adminInstanceResponse, 0, len(instances))
	for _, in := range instances {
		resp = append(resp, adminInstanceResponse{
			instanceResponse: toInstanceResponse(in.Instance),
			CarrierBrand:     in.CarrierBrand,
			CarrierModel:     in.CarrierModel,
			CarrierType:      in.CarrierType,
			Available:        availability[in.ID],
		})
	}

	c.JSON(http.StatusOK, resp)
}

type createInstanceRequest struct {
	CarrierID      string  `json:"carrierId" binding:"required"`
	SerialNumber   *string `json:"serialNumber"`
	ConditionNotes *string `json:"conditionNotes"`
	Issues         *string `json:"issues"`
	Location       *string `json:"location"`
	ImageURL       *string `json:"imageUrl"`
}

func (a *API) createInstanceHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	carrierID, err := uuid.Parse(req.CarrierID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid carrier id"})
		return
	}

	if _, err := a.cfg.Carriers.Get(c, carrierID); err != nil {
		if errors.Is(err, carrier.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "CARRIER_NOT_FOUND", "message": "Carrier not found"})
			return
		}
		logger.ErrorContext(c, "failed to get carrier", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	in := inventory.Instance{
		CarrierID:      carrierID,
		SerialNumber:   req.SerialNumber,
		ConditionNotes: req.ConditionNotes,
		Issues:         req.Issues,
		Location:       req.Location,
		ImageURL:       req.ImageURL,
	}
	if err := a.cfg.Instances.Create(c, &in); err != nil {
		logger.ErrorContext(c, "failed to create instance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, toInstanceResponse(in))
}

type updateInstanceRequest struct {
	Status         *string `json:"status"`
	ConditionNotes *string `json:"conditionNotes"`
	Issues         *string `json:"issues"`
	Location       *string `json:"location"`
	ImageURL       *string `json:"imageUrl"`
}

func (a *API) updateInstanceHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	instanceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid instance id"})
		return
	}

	var req updateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	in, err := a.cfg.Instances.Get(c, instanceID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "INSTANCE_NOT_FOUND", "message": "Instance not found"})
			return
		}
		logger.ErrorContext(c, "failed to get instance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if req.Status != nil {
		in.Status = inventory.Status(*req.Status)
	}
	if req.ConditionNotes != nil {
		in.ConditionNotes = req.ConditionNotes
	}
	if req.Issues != nil {
		in.Issues = req.Issues
	}
	if req.Location != nil {
		in.Location = req.Location
	}
	if req.ImageURL != nil {
		in.ImageURL = req.ImageURL
	}

	err = a.cfg.Instances.Update(c, &in)
	switch {
	case errors.Is(err, inventory.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_STATUS", "message": "Invalid instance status"})
		return
	case errors.Is(err, inventory.ErrCheckedOut):
		c.JSON(http.StatusConflict, gin.H{"code": "INSTANCE_CHECKED_OUT", "message": "Instance has an open checkout"})
		return
	case errors.Is(err, inventory.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "INSTANCE_NOT_FOUND", "message": "Instance not found"})
		return
	case err != nil:
		logger.ErrorContext(c, "failed to update instance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toInstanceResponse(in))
}

// assignQRHandler stores the catalog URL for the unit as its QR value. The
// label itself is rendered by qrImageHandler.
func (a *API) assignQRHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	instanceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid instance id"})
		return
	}

	value := a.cfg.PublicBaseURL + "/instances/" + instanceID.String()
	err = a.cfg.Instances.SetQRCode(c, instanceID, value)
	if errors.Is(err, inventory.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": "INSTANCE_NOT_FOUND", "message": "Instance not found"})
		return
	}
	if err != nil {
		logger.ErrorContext(c, "failed to assign QR value", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"qrCodeValue": value})
}

func (a *API) qrImageHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	instanceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid instance id"})
		return
	}

	in, err := a.cfg.Instances.Get(c, instanceID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "INSTANCE_NOT_FOUND", "message": "Instance not found"})
			return
		}
		logger.ErrorContext(c, "failed to get instance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	value := a.cfg.PublicBaseURL + "/instances/" + instanceID.String()
	if in.QRCodeValue != nil {
		value = *in.QRCodeValue
	}

	png, err := qrcode.PNG(value)
	if err != nil {
		logger.ErrorContext(c, "failed to render QR code", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
