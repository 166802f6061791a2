package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/khatanna/salon-service/internal/auth"
	"github.com/khatanna/salon-service/internal/models"
)

const (
	identityKey = "identity"
	userKey     = "current_user"
	tenantKey   = "tenant_id"
)

// Authenticator resuelve un bearer token a la identidad que lo porta
type Authenticator interface {
	Authenticate(token string) (*auth.Identity, error)
}

// identity retorna la identidad autenticada del contexto de la petición
func identity(c *gin.Context) *auth.Identity {
	return c.MustGet(identityKey).(*auth.Identity)
}

// tenantID retorna el tenant del usuario autenticado
func tenantID(c *gin.Context) string {
	return c.GetString(tenantKey)
}

// AuthMiddleware retorna middleware que valida el bearer token y deja la
// identidad en el contexto. No consulta la ficha del usuario.
func (api *API) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.JSON(http.StatusUnauthorized, models.NewUnauthorizedError("Missing bearer token"))
			c.Abort()
			return
		}

		id, err := api.authenticator.Authenticate(token)
		if err != nil {
			api.logger.WithError(err).Warn("Token validation failed")
			c.JSON(http.StatusUnauthorized, models.NewUnauthorizedError("Invalid token"))
			c.Abort()
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// TenantMiddleware retorna middleware que carga la ficha del usuario
// autenticado y exige que esté habilitado y asignado a un tenant. Deja la
// ficha y el tenant en el contexto.
func (api *API) TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := api.userRepo.GetUserByID(c.Request.Context(), identity(c).UID)
		if err != nil {
			c.JSON(http.StatusForbidden, models.NewForbiddenError("User is not registered"))
			c.Abort()
			return
		}
		if !user.Allowed || user.TenantID == "" {
			c.JSON(http.StatusForbidden, models.NewForbiddenError("User is not enabled for any tenant"))
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Set(tenantKey, user.TenantID)
		c.Next()
	}
}

// OwnerMiddleware retorna middleware que exige el privilegio de dueño.
// Debe encadenarse después de TenantMiddleware.
func (api *API) OwnerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet(userKey).(*models.User)
		if !user.Owner {
			c.JSON(http.StatusForbidden, models.NewForbiddenError("Owner privilege required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
