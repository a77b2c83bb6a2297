package handler

import (
	"net/http"
	"strconv"

	"stockledger/internal/domain/model"
	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SellRequest struct {
	Quantity      int64  `json:"quantity" validate:"gt=0"`
	MarketplaceID int64  `json:"marketplaceId" validate:"gt=0"`
	Date          string `json:"date"`
}

type ReturnRequest struct {
	Quantity      int64  `json:"quantity" validate:"gt=0"`
	MarketplaceID int64  `json:"marketplaceId" validate:"gt=0"`
	ReturnType    string `json:"returnType" validate:"required,oneof=customer courier"`
	Date          string `json:"date"`
}

// POST /transactions（種類はbodyで指定）
type TransactionRequest struct {
	StockID         int64  `json:"stockId" validate:"gt=0"`
	TransactionType string `json:"transactionType" validate:"required"`
	ReturnType      string `json:"returnType"`
	Quantity        int64  `json:"quantity"`
	MarketplaceID   int64  `json:"marketplaceId"`
	Date            string `json:"date"`
}

type TransactionResponse struct {
	Message     string `json:"message"`
	NewQuantity int64  `json:"newQuantity"`
	usecase.TransactionResult
}

// /stocks/:id/sell, /stocks/:id/return, /transactions
type TransactionHandler struct {
	uc *usecase.InventoryUsecase
}

func NewTransactionHandler(uc *usecase.InventoryUsecase) *TransactionHandler {
	return &TransactionHandler{uc: uc}
}

func (h *TransactionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/stocks/:id/sell", h.sell)
	g.POST("/stocks/:id/return", h.returnStock)
	g.POST("/transactions", h.record)
	g.GET("/transactions", h.list)
}

func (h *TransactionHandler) sell(c echo.Context) error {
	stockID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req SellRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return badRequest(c, "invalid date")
	}

	res, err := h.uc.RecordSell(c.Request().Context(), usecase.SellInput{
		StockID:       stockID,
		Quantity:      req.Quantity,
		MarketplaceID: req.MarketplaceID,
		Date:          derefTime(date),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, transactionResponse(res))
}

func (h *TransactionHandler) returnStock(c echo.Context) error {
	stockID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req ReturnRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return badRequest(c, "invalid date")
	}

	res, err := h.uc.RecordReturn(c.Request().Context(), usecase.ReturnInput{
		StockID:       stockID,
		Quantity:      req.Quantity,
		ReturnType:    model.ReturnType(req.ReturnType),
		MarketplaceID: req.MarketplaceID,
		Date:          derefTime(date),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, transactionResponse(res))
}

func (h *TransactionHandler) record(c echo.Context) error {
	var req TransactionRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return badRequest(c, "invalid date")
	}

	res, err := h.uc.RecordTransaction(c.Request().Context(), usecase.RecordTransactionInput{
		StockID:         req.StockID,
		TransactionType: model.TransactionType(req.TransactionType),
		ReturnType:      model.ReturnType(req.ReturnType),
		Quantity:        req.Quantity,
		MarketplaceID:   req.MarketplaceID,
		Date:            derefTime(date),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, transactionResponse(res))
}

func (h *TransactionHandler) list(c echo.Context) error {
	var in usecase.ListTransactionsInput
	var err error

	for name, dst := range map[string]**int64{
		"stockId":       &in.StockID,
		"categoryId":    &in.CategoryID,
		"marketplaceId": &in.MarketplaceID,
	} {
		if *dst, err = queryInt64(c, name); err != nil {
			return badRequest(c, "invalid "+name)
		}
	}
	if v := c.QueryParam("transactionType"); v != "" {
		t := model.TransactionType(v)
		in.TransactionType = &t
	}
	if v := c.QueryParam("returnType"); v != "" {
		r := model.ReturnType(v)
		in.ReturnType = &r
	}
	if in.DateFrom, err = queryDate(c, "startDate"); err != nil {
		return badRequest(c, "invalid startDate")
	}
	if in.DateTo, err = queryDate(c, "endDate"); err != nil {
		return badRequest(c, "invalid endDate")
	}
	if v := c.QueryParam("limit"); v != "" {
		if in.Limit, err = strconv.Atoi(v); err != nil {
			return badRequest(c, "invalid limit")
		}
	}

	out, err := h.uc.ListTransactions(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func transactionResponse(res usecase.TransactionResult) TransactionResponse {
	return TransactionResponse{
		Message:           "Transaction successful",
		NewQuantity:       res.Stock.AvailableQuantity,
		TransactionResult: res,
	}
}
