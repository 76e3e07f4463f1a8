package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/httputil"
)

const (
	HeaderXTenantID = "X-Tenant-ID"
	ContextTenantID = "tenant_id"
)

type TenantConfig struct {
	// Secret switches tenant resolution to HS256 bearer tokens.
	Secret string
	// Claim names the token claim holding the tenant id.
	Claim  string
}

// Tenant resolves the calling tenant, from a bearer token when a secret is
// configured and from the X-Tenant-ID header otherwise.
func Tenant(config TenantConfig) gin.HandlerFunc {
	if config.Claim == "" {
		config.Claim = "tenant_id"
	}
	return func(c *gin.Context) {
		var (
			raw string
			err error
		)
		if config.Secret != "" {
			raw, err = tenantFromToken(c.GetHeader("Authorization"), config)
			if err != nil {
				httputil.RespondWithError(c, errors.Unauthorized(err))
				return
			}
		} else {
			raw = c.GetHeader(HeaderXTenantID)
		}

		if raw == "" {
			httputil.RespondWithError(c, errors.BadRequest("tenant ID is required", nil))
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, errors.BadRequest("invalid tenant ID", err))
			return
		}

		c.Set(ContextTenantID, tenantID)
		c.Next()
	}
}

func tenantFromToken(header string, config TenantConfig) (string, error) {
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid authorization format")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(config.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	tenant, ok := claims[config.Claim].(string)
	if !ok {
		return "", fmt.Errorf("token has no %s claim", config.Claim)
	}
	return tenant, nil
}

// TenantID returns the tenant resolved by Tenant.
func TenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextTenantID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
