package handler

import (
	"net/http"

	"stockledger/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /marketplaces
type MarketplaceHandler struct {
	uc *usecase.MarketplaceUsecase
}

func NewMarketplaceHandler(uc *usecase.MarketplaceUsecase) *MarketplaceHandler {
	return &MarketplaceHandler{uc: uc}
}

func (h *MarketplaceHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/marketplaces", h.list)
	g.GET("/marketplaces/:id", h.get)
	g.POST("/marketplaces", h.create)
	g.PUT("/marketplaces/:id", h.rename)
	g.DELETE("/marketplaces/:id", h.delete)
}

func (h *MarketplaceHandler) list(c echo.Context) error {
	items, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *MarketplaceHandler) get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	item, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *MarketplaceHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req NameRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	item, err := h.uc.Create(c.Request().Context(), actor, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *MarketplaceHandler) rename(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req NameRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	item, err := h.uc.Rename(c.Request().Context(), actor, id, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *MarketplaceHandler) delete(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.Delete(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
