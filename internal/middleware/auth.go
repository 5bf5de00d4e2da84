package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"
)

// IdentityKey for storing the authenticated caller in the Gin context.
const IdentityKey = "identity"

// Identity is the authenticated caller as the application sees it. The core
// never inspects raw token claims; whatever middleware runs first is
// responsible for producing one of these.
type Identity struct {
	UserID  string
	IsAdmin bool
}

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(IdentityKey, id)
}

func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// RoleClaims carries the namespaced role claim issued by the identity
// provider alongside the registered claims.
type RoleClaims struct {
	Roles []string `json:"https://lending.babywearing.org/roles"`
}

func (c *RoleClaims) Validate(_ context.Context) error {
	return nil
}

// JWT builds the auth chain for production: bearer-token validation against
// the provider's JWKS, then projection of the validated claims into an
// Identity. Register both handlers in order.
func JWT(domain, audience, adminRole string) ([]gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &RoleClaims{}
		}),
	)
	if err != nil {
		return nil, err
	}

	check := adapter.Wrap(jwtmiddleware.New(jwtValidator.ValidateToken).CheckJWT)

	project := func(c *gin.Context) {
		claims, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
			return
		}

		id := Identity{UserID: claims.RegisteredClaims.Subject}
		if rc, ok := claims.CustomClaims.(*RoleClaims); ok {
			for _, role := range rc.Roles {
				if role == adminRole {
					id.IsAdmin = true
					break
				}
			}
		}
		SetIdentity(c, id)
		c.Next()
	}

	return []gin.HandlerFunc{check, project}, nil
}

// RequireAdmin gates admin routes on the Identity's role flag.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
			return
		}
		if !id.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Admin role required"})
			return
		}
		c.Next()
	}
}
