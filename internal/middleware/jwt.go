// Package middleware holds the echo middleware shared by the routes:
// authentication, role checks, request ids, request logging, the Redis
// response cache and the Redis token-bucket rate limiter.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/utils"
)

// Context keys set by JWTAuth.
const (
	UserIDKey = "user_id" // uint64
	RoleKey   = "role"    // string
)

// JWTAuth validates a Bearer access token and stores the user id and role
// in the request context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
			}
			uid, err := claims.UserID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid claims"})
			}
			c.Set(UserIDKey, uid)
			c.Set(RoleKey, claims.Role)
			return next(c)
		}
	}
}

// OptionalJWTAuth behaves like JWTAuth when a valid bearer token is sent
// and lets the request through anonymously otherwise.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.HasPrefix(auth, "Bearer ") {
				if claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
					if uid, err := claims.UserID(); err == nil {
						c.Set(UserIDKey, uid)
						c.Set(RoleKey, claims.Role)
					}
				}
			}
			return next(c)
		}
	}
}
