package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/babywearing/lending-backend/internal/middleware"
	"github.com/babywearing/lending-backend/inventory"
	"github.com/babywearing/lending-backend/member"
	"github.com/babywearing/lending-backend/review"
)

type reviewResponse struct {
	ID        uuid.UUID `json:"id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toReviewResponses(reviews []review.Review) []reviewResponse {
	resp := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		resp = append(resp, reviewResponse{
			ID:        rv.ID,
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			CreatedAt: rv.CreatedAt,
		})
	}
	return resp
}

func (a *API) listReviewsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	instanceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid instance id"})
		return
	}

	reviews, err := a.cfg.Reviews.ListByInstance(c, instanceID)
	if err != nil {
		logger.ErrorContext(c, "failed to list reviews", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toReviewResponses(reviews))
}

type createReviewRequest struct {
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment"`
}

// createReviewHandler records member feedback on a unit. Any member may
// review, whether or not a checkout ever completed.
func (a *API) createReviewHandler(c *gin.Context) {
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

	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	m, err := a.cfg.Members.GetByUserID(c, id.UserID)
	if errors.Is(err, member.ErrNotMember) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "NOT_A_MEMBER", "message": "You must be a member to leave a review"})
		return
	}
	if err != nil {
		logger.ErrorContext(c, "failed to resolve member", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if _, err := a.cfg.Instances.Get(c, instanceID); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "INSTANCE_NOT_FOUND", "message": "Instance not found"})
			return
		}
		logger.ErrorContext(c, "failed to get instance", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	rv := review.Review{
		CarrierInstanceID: instanceID,
		MemberID:          m.ID,
		Rating:            req.Rating,
		Comment:           req.Comment,
	}
	err = a.cfg.Reviews.Create(c, &rv)
	if errors.Is(err, review.ErrInvalidRating) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_RATING", "message": "Rating must be between 1 and 5"})
		return
	}
	if err != nil {
		logger.ErrorContext(c, "failed to create review", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, reviewResponse{
		ID:        rv.ID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
	})
}
