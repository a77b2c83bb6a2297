package handler

import (
	"net/http"
	"strconv"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/model"
	repo "stockledger/internal/repository"
	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /audit-logs
type AuditHandler struct {
	uc *usecase.AuditUsecase
}

func NewAuditHandler(uc *usecase.AuditUsecase) *AuditHandler {
	return &AuditHandler{uc: uc}
}

func (h *AuditHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-logs", h.list)
}

func (h *AuditHandler) list(c echo.Context) error {
	var f repo.AuditLogFilter

	if v := c.QueryParam("actor"); v != "" {
		f.Actor = &v
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resourceType"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	id, err := queryInt64(c, "resourceId")
	if err != nil {
		return badRequest(c, "invalid resourceId")
	}
	f.ResourceID = id

	from, err := queryDate(c, "startDate")
	if err != nil {
		return badRequest(c, "invalid startDate")
	}
	to, err := queryDate(c, "endDate")
	if err != nil {
		return badRequest(c, "invalid endDate")
	}
	//endDateはその日を含む
	f.CreatedFrom, f.CreatedTo = ledger.DayRange(from, to)

	if v := c.QueryParam("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return badRequest(c, "invalid limit")
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			return badRequest(c, "invalid offset")
		}
	}

	logs, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
