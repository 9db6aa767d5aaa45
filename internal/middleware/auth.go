package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"egglytics-backend/internal/config"
)

const OwnerKey = "owner"

// AnonymousOwner is recorded on uploads without credentials. Annotation is
// open to unauthenticated lab users; a token only attributes the work.
const AnonymousOwner = "incognito"

// Identify resolves the request owner. No Authorization header falls back
// to the anonymous owner; a present but invalid bearer token is rejected.
func Identify(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(OwnerKey, AnonymousOwner)
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			if cfg.JWTSecret == "" {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		owner := AnonymousOwner
		if username, ok := claims["username"].(string); ok && username != "" {
			owner = username
		} else if sub, ok := claims["sub"].(string); ok && sub != "" {
			owner = sub
		}

		c.Set(OwnerKey, owner)
		c.Next()
	}
}

// Owner reads the resolved owner name from the request context.
func Owner(c *gin.Context) string {
	if owner, exists := c.Get(OwnerKey); exists {
		if name, ok := owner.(string); ok {
			return name
		}
	}
	return AnonymousOwner
}
