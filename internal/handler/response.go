package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/middleware"
	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 失敗時の共通レスポンス
type ErrorResponse struct {
	Error string            `json:"error"`
	Kind  usecase.ErrorKind `json:"kind,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

var kindStatus = map[usecase.ErrorKind]int{
	usecase.KindValidation:          http.StatusBadRequest,
	usecase.KindNotFound:            http.StatusNotFound,
	usecase.KindDuplicate:           http.StatusConflict,
	usecase.KindInsufficientStock:   http.StatusBadRequest,
	usecase.KindExceedsInitialStock: http.StatusBadRequest,
	usecase.KindConflict:            http.StatusConflict,
	usecase.KindStorage:             http.StatusServiceUnavailable,
	usecase.KindUnauthorized:        http.StatusUnauthorized,
}

// usecaseのエラーをHTTPに変換する。AppError以外は500を書いたうえで
// errをそのまま返し、RequestLoggerにzapで残させる。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := usecase.AsAppError(err); ok {
		status, ok := kindStatus[ae.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		return c.JSON(status, ErrorResponse{Error: ae.Message, Kind: ae.Kind})
	}

	if werr := c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"}); werr != nil {
		return werr
	}
	return err
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: usecase.KindValidation})
}

// Bind + Validate。失敗したら400を書いて false を返す。
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return false, badRequest(c, err.Error())
	}
	return true, nil
}

// 認証middlewareが入れた管理者名
func actorFromContext(c echo.Context) (string, bool) {
	actor, ok := c.Get(middleware.CtxActorKey).(string)
	return actor, ok && actor != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: usecase.KindUnauthorized})
}

var errInvalidParam = errors.New("invalid parameter")

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidParam
	}
	return id, nil
}

// 空ならnil
func queryInt64(c echo.Context, name string) (*int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errInvalidParam
	}
	return &v, nil
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	return parseDate(raw)
}

// bodyの日付。空ならnil
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := ledger.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
