package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/catalog-gate/internal/api/dto"
	"github.com/spec-kit/catalog-gate/internal/catalog"
	"github.com/spec-kit/catalog-gate/internal/gate"
	"github.com/spec-kit/catalog-gate/internal/service"
	apperrors "github.com/spec-kit/catalog-gate/pkg/util/errorutil"
)

// ScreensHandler serves the gated catalog screens.
type ScreensHandler struct {
	catalog *service.CatalogService
}

// NewScreensHandler constructs handler.
func NewScreensHandler(catalogService *service.CatalogService) *ScreensHandler {
	return &ScreensHandler{catalog: catalogService}
}

// Home handles GET /home.
func (h *ScreensHandler) Home(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	skip := c.QueryInt("skip", 0)

	page, err := h.catalog.Home(c.UserContext(), limit, skip)
	if err != nil {
		return catalogError(err)
	}

	subject, _ := gate.SubjectFromContext(c)
	return c.JSON(fiber.Map{"data": dto.NewHomeResponse(subject, page)})
}

// Product handles GET /products/:id.
func (h *ScreensHandler) Product(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "product id must be an integer")
	}

	product, err := h.catalog.Product(c.UserContext(), id)
	if err != nil {
		return catalogError(err)
	}
	return c.JSON(fiber.Map{"data": product})
}

func catalogError(err error) error {
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrInvalidArgument) {
		return err
	}
	return apperrors.NewUpstreamError("CATALOG_UNAVAILABLE", "product catalog unavailable", err)
}
