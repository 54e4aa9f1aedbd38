package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/materials-commons/depot/pkg/actions"
)

// Headers the principal middleware reads.
const (
	HeaderOwnerID   = "X-Depot-Owner"
	HeaderOwnerType = "X-Depot-Owner-Type"
	HeaderAPIKey    = "X-Depot-Api-Key"
)

type PrincipalConfig struct {
	// AdminKey, when presented in the api key header, grants the
	// manage_files permission.
	AdminKey string
}

// PrincipalAuth builds the actions.Principal for the request from the
// identity headers. Requests without an owner header are rejected.
func PrincipalAuth(config PrincipalConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ownerID := c.Request().Header.Get(HeaderOwnerID)
			if ownerID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no owner header")
			}

			ownerType := c.Request().Header.Get(HeaderOwnerType)
			if ownerType == "" {
				ownerType = "user"
			}

			p := actions.Principal{
				ID:   ownerID,
				Type: ownerType,
			}

			if config.AdminKey != "" && c.Request().Header.Get(HeaderAPIKey) == config.AdminKey {
				p.ManageFiles = true
			}

			c.Set("Principal", p)

			return next(c)
		}
	}
}

func principalFromContext(c echo.Context) actions.Principal {
	if p, ok := c.Get("Principal").(actions.Principal); ok {
		return p
	}

	return actions.Principal{}
}
