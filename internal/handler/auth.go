package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tiffinbox/tiffin-service/internal/model"
	"github.com/tiffinbox/tiffin-service/internal/service"
)

// AuthHandler serves sign-up, login and token endpoints.
type AuthHandler struct {
	Accounts *service.AccountService
	Log      logrus.FieldLogger
}

func NewAuthHandler(a *service.AccountService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Accounts: a, Log: log}
}

// ----- DTOs -----

type signUpReq struct {
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
type loginReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
type resetPasswordReq struct {
	Phone       string `json:"phone"`
	NewPassword string `json:"new_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.Account `json:"user"`
	Access  tokenPart     `json:"access"`
	Refresh tokenPart     `json:"refresh"`
}

func sessionResp(s service.Session) authResp {
	return authResp{
		User:    s.Account,
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp}, // raw back to client
	}
}

// SignUp: POST /v1/auth/signup
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		return badRequest(c, "phone, name and password are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Accounts.SignUp(ctx, req.Phone, req.Name, req.Password)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, "account created", sessionResp(sess))
}

// Login: POST /v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	return h.login(c, h.Accounts.Login)
}

// AdminLogin: POST /v1/admin/login, admins and suppliers only.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	return h.login(c, h.Accounts.AdminLogin)
}

func (h *AuthHandler) login(c echo.Context, fn func(ctx context.Context, phone, password string) (service.Session, error)) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Phone) == "" || req.Password == "" {
		return badRequest(c, "phone and password are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := fn(ctx, req.Phone, req.Password)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, "logged in", sessionResp(sess))
}

// Refresh: POST /v1/auth/refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, "token refreshed", sessionResp(sess))
}

// Logout: POST /v1/auth/logout.  Without a refresh token every session of
// the caller is revoked.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.Logout(ctx, caller(c), req.RefreshToken); err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, "logged out", nil)
}

// ChangePassword: PUT /v1/auth/password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		return badRequest(c, "old_password and new_password are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.ChangePassword(ctx, caller(c), req.OldPassword, req.NewPassword); err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, "password changed", nil)
}

// ResetPassword: PUT /v1/admin/change-password sets another account's
// password by phone.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Phone) == "" || req.NewPassword == "" {
		return badRequest(c, "phone and new_password are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.ResetPassword(ctx, req.Phone, req.NewPassword); err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.WithFields(logrus.Fields{"admin_id": caller(c), "phone": strings.TrimSpace(req.Phone)}).Info("password reset")
	return ok(c, http.StatusOK, "password updated", nil)
}
