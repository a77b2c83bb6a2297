package handler

import (
	"net/http"

	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
)

type StockCreateRequest struct {
	ModelName       string `json:"modelName" validate:"required,max=255"`
	CategoryID      int64  `json:"categoryId" validate:"required,gt=0"`
	InitialQuantity *int64 `json:"initialQuantity" validate:"required,gte=0"`
	Date            string `json:"date" validate:"required"`
}

type StockUpdateRequest struct {
	ModelName       string `json:"modelName" validate:"required,max=255"`
	CategoryID      int64  `json:"categoryId" validate:"required,gt=0"`
	InitialQuantity *int64 `json:"initialQuantity" validate:"omitempty,gte=0"`
	//入庫数を訂正するときの日付。空なら今日
	Date string `json:"date"`
}

type InitialQuantityRequest struct {
	InitialQuantity *int64 `json:"initialQuantity" validate:"required,gte=0"`
	Date            string `json:"date"`
}

// /stocks
type StockHandler struct {
	uc *usecase.StockUsecase
}

func NewStockHandler(uc *usecase.StockUsecase) *StockHandler {
	return &StockHandler{uc: uc}
}

func (h *StockHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/stocks", h.list)
	g.POST("/stocks", h.create)
	g.GET("/stocks/:id", h.get)
	g.PUT("/stocks/:id", h.update)
	g.PUT("/stocks/:id/initial-quantity", h.updateInitialQuantity)
	g.DELETE("/stocks/:id", h.delete)
}

func (h *StockHandler) list(c echo.Context) error {
	categoryID, err := queryInt64(c, "categoryId")
	if err != nil {
		return badRequest(c, "invalid categoryId")
	}

	items, err := h.uc.ListStocks(c.Request().Context(), usecase.ListStocksInput{
		CategoryID: categoryID,
		Search:     c.QueryParam("search"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *StockHandler) get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	item, err := h.uc.GetStock(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *StockHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req StockCreateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return badRequest(c, "invalid date")
	}

	item, err := h.uc.CreateStock(c.Request().Context(), actor, usecase.CreateStockInput{
		ModelName:       req.ModelName,
		CategoryID:      req.CategoryID,
		InitialQuantity: req.InitialQuantity,
		Date:            derefTime(date),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *StockHandler) update(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req StockUpdateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return badRequest(c, "invalid date")
	}

	item, err := h.uc.UpdateStock(c.Request().Context(), actor, id, usecase.UpdateStockInput{
		ModelName:       req.ModelName,
		CategoryID:      req.CategoryID,
		InitialQuantity: req.InitialQuantity,
		Date:            date,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *StockHandler) updateInitialQuantity(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req InitialQuantityRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return badRequest(c, "invalid date")
	}

	item, err := h.uc.UpdateStockInitialQuantity(c.Request().Context(), actor, id, *req.InitialQuantity, date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *StockHandler) delete(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeleteStock(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
