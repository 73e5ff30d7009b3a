package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "rehab-service/pkg/auth"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey  = "userID"
	ContextAdminIDKey = "adminID"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		claims, err := pkgAuth.ParseUserToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextUserIDKey, claims.SubjectID)
		c.Next()
	}
}

// OptionalAuth attaches the user id when a valid user token is present and
// lets anonymous requests through otherwise. Used by read-only screens.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := extractBearerToken(c.GetHeader("Authorization")); err == nil {
			if claims, err := pkgAuth.ParseUserToken(token); err == nil {
				c.Set(ContextUserIDKey, claims.SubjectID)
			}
		}
		c.Next()
	}
}

// UserOrAdmin accepts either a user or an admin token. Admins manage every game.
func UserOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		claims, err := pkgAuth.ParseToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		switch claims.Scope {
		case pkgAuth.ScopeUser:
			c.Set(ContextUserIDKey, claims.SubjectID)
		case pkgAuth.ScopeAdmin:
			c.Set(ContextAdminIDKey, claims.SubjectID)
		default:
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Next()
	}
}

func AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		claims, err := pkgAuth.ParseAdminToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextAdminIDKey, claims.SubjectID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"success": false,
		"data":    gin.H{},
		"message": msg,
	})
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
