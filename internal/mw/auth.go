package mw

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ClaimsKey is the gin context key holding the verified token claims.
const ClaimsKey = "claims"

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "message": "Unauthorized"})
}

// DeviceSecret admits requests carrying the shared x-secret-key header.
// An empty secret rejects every request.
func DeviceSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("x-secret-key")
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			unauthorized(c)
			return
		}
		c.Next()
	}
}

// BearerConfig holds the token verification parameters.
type BearerConfig struct {
	Secret   string
	Audience string
	Issuer   string
	MaxAge   time.Duration
}

var errTokenTooOld = errors.New("token exceeds maximum age")

// ParseToken verifies an HS256 token and returns its claims.
func (b BearerConfig) ParseToken(raw string, now time.Time) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if b.Audience != "" {
		opts = append(opts, jwt.WithAudience(b.Audience))
	}
	if b.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(b.Issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(b.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if b.MaxAge > 0 {
		iat, err := claims.GetIssuedAt()
		if err != nil || iat == nil || now.Sub(iat.Time) > b.MaxAge {
			return nil, errTokenTooOld
		}
	}
	return claims, nil
}

// Bearer admits requests with a valid "Authorization: Bearer" token and
// stores its claims under ClaimsKey.
func Bearer(cfg BearerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" || cfg.Secret == "" {
			unauthorized(c)
			return
		}
		claims, err := cfg.ParseToken(strings.TrimSpace(raw), time.Now())
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
