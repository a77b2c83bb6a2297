package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/report"
	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
)

type RebuildResponse struct {
	Fixed bool         `json:"fixed"`
	Drift ledger.Drift `json:"drift"`
}

// /reports
type ReportHandler struct {
	uc *usecase.InventoryUsecase
}

func NewReportHandler(uc *usecase.InventoryUsecase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

func (h *ReportHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/reports/net", h.net)
	g.GET("/reports/net.xlsx", h.netXLSX)
	g.GET("/reports/reconciliation", h.reconciliation)
	g.POST("/reports/reconciliation/:id/rebuild", h.rebuild)
}

func (h *ReportHandler) net(c echo.Context) error {
	categoryID, err := queryInt64(c, "categoryId")
	if err != nil {
		return badRequest(c, "invalid categoryId")
	}
	rows, err := h.uc.NetReport(c.Request().Context(), categoryID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) netXLSX(c echo.Context) error {
	categoryID, err := queryInt64(c, "categoryId")
	if err != nil {
		return badRequest(c, "invalid categoryId")
	}
	rows, err := h.uc.NetReport(c.Request().Context(), categoryID)
	if err != nil {
		return writeError(c, err)
	}

	//書き出しに失敗したときにJSONで返せるよう、一度バッファに作る
	var buf bytes.Buffer
	if err := report.WriteNetReport(&buf, rows); err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "net-report.xlsx"))
	return c.Blob(http.StatusOK, report.ContentTypeXLSX, buf.Bytes())
}

func (h *ReportHandler) reconciliation(c echo.Context) error {
	stockID, err := queryInt64(c, "stockId")
	if err != nil {
		return badRequest(c, "invalid stockId")
	}
	rep, err := h.uc.Reconcile(c.Request().Context(), stockID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *ReportHandler) rebuild(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	stockID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	drift, fixed, err := h.uc.RebuildAvailable(c.Request().Context(), actor, stockID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, RebuildResponse{Fixed: fixed, Drift: drift})
}
