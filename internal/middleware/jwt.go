package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/tiffinbox/tiffin-service/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id" // uint64 account id
    CtxRole   = "role"    // role claim
)

// JWTAuth validates a Bearer access token and stores the account id and
// role in the request context.  Handlers read them through UserID and
// Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return deny(c, http.StatusUnauthorized, "missing bearer token")
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return deny(c, http.StatusUnauthorized, "invalid token")
            }
            id, err := claims.AccountID()
            if err != nil || claims.Role == "" {
                return deny(c, http.StatusUnauthorized, "invalid claims")
            }

            c.Set(CtxUserID, id)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}

// deny writes the same envelope the handlers use for failures.
func deny(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "message": msg})
}
