package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	//ログイン中の管理者名（string）
	CtxActorKey = "actor"

	//ログインで発行するhttpOnly Cookie
	AuthCookieName = "auth"
)

// トークンを検証して管理者名を返す約束
type TokenParser interface {
	Parse(raw string) (string, error)
}

// RequireAuth は auth Cookie か Bearer トークンを検証し、通った場合だけ次へ進める。
func RequireAuth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			actor, err := parser.Parse(raw)
			if err != nil || actor == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxActorKey, actor)
			return next(c)
		}
	}
}

// Cookie優先、無ければAuthorizationヘッダ
func tokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(AuthCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}

	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg, Kind: "unauthorized"}
}
