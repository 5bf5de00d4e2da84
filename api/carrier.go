package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/babywearing/lending-backend/carrier"
	"github.com/babywearing/lending-backend/internal/middleware"
	"github.com/babywearing/lending-backend/inventory"
)

type carrierResponse struct {
	ID              uuid.UUID    `json:"id"`
	Brand           string       `json:"brand"`
	Type            carrier.Type `json:"type"`
	Model           *string      `json:"model,omitempty"`
	Material        *string      `json:"material,omitempty"`
	Description     *string      `json:"description,omitempty"`
	ImageURL        *string      `json:"imageUrl,omitempty"`
	VideoURL        *string      `json:"videoUrl,omitempty"`
	SafetyInfo      *string      `json:"safetyInfo,omitempty"`
	RecallInfo      *string      `json:"recallInfo,omitempty"`
	SafetyTests     *string      `json:"safetyTests,omitempty"`
	ManufacturerURL *string      `json:"manufacturerUrl,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
}

type catalogCarrierResponse struct {
	carrierResponse
	Instances []catalogInstanceResponse `json:"instances"`
}

type catalogInstanceResponse struct {
	ID        uuid.UUID        `json:"id"`
	Status    inventory.Status `json:"status"`
	Location  *string          `json:"location,omitempty"`
	ImageURL  *string          `json:"imageUrl,omitempty"`
	Available bool             `json:"available"`
}

func toCarrierResponse(c carrier.Carrier) carrierResponse {
	return carrierResponse{
		ID:              c.ID,
		Brand:           c.Brand,
		Type:            c.Type,
		Model:           c.Model,
		Material:        c.Material,
		Description:     c.Description,
		ImageURL:        c.ImageURL,
		VideoURL:        c.VideoURL,
		SafetyInfo:      c.SafetyInfo,
		RecallInfo:      c.RecallInfo,
		SafetyTests:     c.SafetyTests,
		ManufacturerURL: c.ManufacturerURL,
		CreatedAt:       c.CreatedAt,
	}
}

// listCarriersHandler renders the member catalog: every carrier with its
// instances and their availability.
func (a *API) listCarriersHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	carriers, err := a.cfg.Carriers.List(c)
	if err != nil {
		logger.ErrorContext(c, "failed to list carriers", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

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

	byCarrier := make(map[uuid.UUID][]catalogInstanceResponse, len(carriers))
	for _, in := range instances {
		byCarrier[in.CarrierID] = append(byCarrier[in.CarrierID], catalogInstanceResponse{
			ID:        in.ID,
			Status:    in.Status,
			Location:  in.Location,
			ImageURL:  in.ImageURL,
			Available: availability[in.ID],
		})
	}

	resp := make([]catalogCarrierResponse, 0, len(carriers))
	for _, cr := range carriers {
		instances := byCarrier[cr.ID]
		if instances == nil {
			instances = []catalogInstanceResponse{}
		}
		resp = append(resp, catalogCarrierResponse{
			carrierResponse: toCarrierResponse(cr),
			Instances:       instances,
		})
	}

	c.JSON(http.StatusOK, resp)
}

type createCarrierRequest struct {
	Brand           string  `json:"brand" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	Model           *string `json:"model"`
	Material        *string `json:"material"`
	Description     *string `json:"description"`
	ImageURL        *string `json:"imageUrl"`
	VideoURL        *string `json:"videoUrl"`
	SafetyInfo      *string `json:"safetyInfo"`
	RecallInfo      *string `json:"recallInfo"`
	SafetyTests     *string `json:"safetyTests"`
	ManufacturerURL *string `json:"manufacturerUrl"`
}

func (a *API) createCarrierHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	var req createCarrierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	typ, err := carrier.ParseType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_TYPE", "message": err.Error()})
		return
	}

	cr := carrier.Carrier{
		Brand:           req.Brand,
		Type:            typ,
		Model:           req.Model,
		Material:        req.Material,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		VideoURL:        req.VideoURL,
		SafetyInfo:      req.SafetyInfo,
		RecallInfo:      req.RecallInfo,
		SafetyTests:     req.SafetyTests,
		ManufacturerURL: req.ManufacturerURL,
	}
	if err := a.cfg.Carriers.Create(c, &cr); err != nil {
		logger.ErrorContext(c, "failed to create carrier", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, toCarrierResponse(cr))
}

type updateCarrierRequest struct {
	Brand           *string `json:"brand"`
	Type            *string `json:"type"`
	Model           *string `json:"model"`
	Material        *string `json:"material"`
	Description     *string `json:"description"`
	ImageURL        *string `json:"imageUrl"`
	VideoURL        *string `json:"videoUrl"`
	SafetyInfo      *string `json:"safetyInfo"`
	RecallInfo      *string `json:"recallInfo"`
	SafetyTests     *string `json:"safetyTests"`
	ManufacturerURL *string `json:"manufacturerUrl"`
}

// updateCarrierHandler applies a partial edit: absent fields keep their
// stored values.
func (a *API) updateCarrierHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid carrier id"})
		return
	}

	var req updateCarrierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	cr, err := a.cfg.Carriers.Get(c, id)
	if err != nil {
		if errors.Is(err, carrier.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "CARRIER_NOT_FOUND", "message": "Carrier not found"})
			return
		}
		logger.ErrorContext(c, "failed to get carrier", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if req.Brand != nil {
		cr.Brand = *req.Brand
	}
	if req.Type != nil {
		typ, err := carrier.ParseType(*req.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_TYPE", "message": err.Error()})
			return
		}
		cr.Type = typ
	}
	if req.Model != nil {
		cr.Model = req.Model
	}
	if req.Material != nil {
		cr.Material = req.Material
	}
	if req.Description != nil {
		cr.Description = req.Description
	}
	if req.ImageURL != nil {
		cr.ImageURL = req.ImageURL
	}
	if req.VideoURL != nil {
		cr.VideoURL = req.VideoURL
	}
	if req.SafetyInfo != nil {
		cr.SafetyInfo = req.SafetyInfo
	}
	if req.RecallInfo != nil {
		cr.RecallInfo = req.RecallInfo
	}
	if req.SafetyTests != nil {
		cr.SafetyTests = req.SafetyTests
	}
	if req.ManufacturerURL != nil {
		cr.ManufacturerURL = req.ManufacturerURL
	}

	if err := a.cfg.Carriers.Update(c, &cr); err != nil {
		logger.ErrorContext(c, "failed to update carrier", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toCarrierResponse(cr))
}

func (a *API) deleteCarrierHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid carrier id"})
		return
	}

	err = a.cfg.Carriers.Delete(c, id)
	if errors.Is(err, carrier.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": "CARRIER_NOT_FOUND", "message": "Carrier not found"})
		return
	}
	if err != nil {
		logger.ErrorContext(c, "failed to delete carrier", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}
