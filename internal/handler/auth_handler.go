package handler

import (
	"errors"
	"net/http"
	"time"

	"stockledger/internal/middleware"
	"stockledger/internal/usecase"
	auth "stockledger/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Success   bool      `json:"success"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// /auth/login, /auth/logout
type AuthHandler struct {
	loginUC      *auth.LoginUsecase
	cookieSecure bool
}

func NewAuthHandler(loginUC *auth.LoginUsecase, cookieSecure bool) *AuthHandler {
	return &AuthHandler{loginUC: loginUC, cookieSecure: cookieSecure}
}

// loginには呼び出し側でレート制限をかける
func (h *AuthHandler) RegisterRoutes(g *echo.Group, loginLimiter echo.MiddlewareFunc) {
	if loginLimiter != nil {
		g.POST("/login", h.login, loginLimiter)
	} else {
		g.POST("/login", h.login)
	}
	g.POST("/logout", h.logout)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return badRequest(c, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials", Kind: usecase.KindUnauthorized})
	case err != nil:
		return writeError(c, err)
	}

	c.SetCookie(h.authCookie(out.Token, out.ExpiresAt))
	return c.JSON(http.StatusOK, LoginResponse{Success: true, Username: out.Username, ExpiresAt: out.ExpiresAt})
}

// Cookieを消すだけ（JWTはステートレス）
func (h *AuthHandler) logout(c echo.Context) error {
	ck := h.authCookie("", time.Unix(0, 0))
	ck.MaxAge = -1
	c.SetCookie(ck)
	return c.JSON(http.StatusOK, SuccessResponse{Message: "logged out"})
}

func (h *AuthHandler) authCookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	}
}
