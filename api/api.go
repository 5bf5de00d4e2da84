// Package api exposes the lending library over HTTP: a member-facing
// catalog/checkout surface and an admin back office on one router.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/babywearing/lending-backend/carrier"
	"github.com/babywearing/lending-backend/checkout"
	"github.com/babywearing/lending-backend/internal/middleware"
	"github.com/babywearing/lending-backend/internal/o11y"
	"github.com/babywearing/lending-backend/inventory"
	"github.com/babywearing/lending-backend/member"
	"github.com/babywearing/lending-backend/review"
)

type Config struct {
	Carriers  *carrier.Repository
	Instances *inventory.Repository
	Members   *member.Repository
	Checkouts *checkout.Repository
	Reviews   *review.Repository

	Obs *o11y.Observability

	// Auth is the middleware chain that produces a middleware.Identity for
	// each request. Production wires the JWT chain; tests inject a fake.
	Auth []gin.HandlerFunc

	// PublicBaseURL is the member-facing catalog origin embedded in QR
	// labels.
	PublicBaseURL string

	// AllowForceReturn enables the admin close-out of approved checkouts
	// outside the member return flow.
	AllowForceReturn bool

	MetricsUsername string
	MetricsPassword string
}

type API struct {
	r   *gin.Engine
	cfg Config
}

func New(cfg Config) *API {
	a := &API{
		r:   gin.New(),
		cfg: cfg,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	if cfg.Obs != nil {
		a.r.Use(middleware.Logging(cfg.Obs.Logger))
		a.r.Use(middleware.Metrics(cfg.Obs.Registry))
	}

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Obs != nil {
		metrics := a.r.Group("/metrics")
		if cfg.MetricsUsername != "" {
			metrics.Use(gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}))
		}
		metrics.GET("", gin.WrapH(promhttp.HandlerFor(cfg.Obs.Registry, promhttp.HandlerOpts{})))
	}

	authed := a.r.Group("/")
	authed.Use(cfg.Auth...)
	{
		authed.GET("/carriers", a.listCarriersHandler)
		authed.GET("/instances/:id", a.getInstanceHandler)
		authed.POST("/instances/:id/checkout", a.requestCheckoutHandler)
		authed.GET("/instances/:id/reviews", a.listReviewsHandler)
		authed.POST("/instances/:id/reviews", a.createReviewHandler)
		authed.GET("/checkouts", a.myCheckoutsHandler)
		authed.POST("/checkouts/:id/cancel", a.cancelCheckoutHandler)
		authed.GET("/me/membership", a.myMembershipHandler)
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/carriers", a.createCarrierHandler)
		admin.PATCH("/carriers/:id", a.updateCarrierHandler)
		admin.DELETE("/carriers/:id", a.deleteCarrierHandler)

		admin.GET("/instances", a.adminListInstancesHandler)
		admin.POST("/instances", a.createInstanceHandler)
		admin.PATCH("/instances/:id", a.updateInstanceHandler)
		admin.POST("/instances/:id/qr", a.assignQRHandler)
		admin.GET("/instances/:id/qr.png", a.qrImageHandler)

		admin.GET("/checkouts", a.adminListCheckoutsHandler)
		admin.POST("/checkouts/:id/approve", a.approveCheckoutHandler)
		admin.POST("/checkouts/:id/deny", a.denyCheckoutHandler)
		admin.POST("/checkouts/:id/return", a.returnCheckoutHandler)
		admin.POST("/checkouts/:id/force-return", a.forceReturnCheckoutHandler)

		admin.GET("/members", a.listMembersHandler)
		admin.PUT("/members/:userId", a.upsertMemberHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// identity fetches the authenticated caller, writing the 401 itself when
// the auth chain did not run.
func (a *API) identity(c *gin.Context) (middleware.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
	}
	return id, ok
}
