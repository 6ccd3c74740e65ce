package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"catalog/internal/dto"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductService is the part of services.ProductService the handler calls.
type ProductService interface {
	CreateProduct(ctx context.Context, req dto.ProductRequest) (dto.ProductResponse, error)
	ListProducts(ctx context.Context) ([]dto.ProductResponse, error)
	GetProductByID(ctx context.Context, id int64) (dto.ProductResponse, error)
	GroupProductsByType(ctx context.Context) (dto.ProductGroups, error)
}

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service ProductService, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/", h.HandleGetProducts)
	// Registered before /:productId so "types" is not parsed as an ID.
	productRoutes.Get("/types", h.HandleGetProductsByType)
	productRoutes.Get("/:productId", h.HandleGetProductByID)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req dto.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.InfoContext(c.UserContext(), "Error parsing request body", slog.String("error", err.Error()))
		return c.Status(fiber.StatusBadRequest).JSON(dto.Failure(dto.ErrorDTO{
			ErrorMessage: "Invalid request body",
		}))
	}

	product, err := h.service.CreateProduct(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.Success(product))
}

// HandleGetProducts retrieves all products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.Success(products))
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	raw := c.Params("productId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Failure(dto.ErrorDTO{
			Field:        "productId",
			ErrorMessage: "product id must be an integer",
		}))
	}

	product, err := h.service.GetProductByID(c.UserContext(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.Success(product))
}

// HandleGetProductsByType retrieves all products grouped by product type.
func (h *ProductHandler) HandleGetProductsByType(c *fiber.Ctx) error {
	groups, err := h.service.GroupProductsByType(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.Success(groups))
}

// writeError maps a service error to its status code and error envelope.
func (h *ProductHandler) writeError(c *fiber.Ctx, err error) error {
	var (
		verr *services.ValidationError
		nf   *services.NotFoundError
		serr *services.ServiceError
	)

	switch {
	case errors.As(err, &verr):
		errs := make([]dto.ErrorDTO, len(verr.Violations))
		for i, v := range verr.Violations {
			errs[i] = dto.ErrorDTO{Field: v.Field, ErrorMessage: v.Message}
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Failure(errs...))
	case errors.As(err, &nf):
		return c.Status(fiber.StatusNotFound).JSON(dto.Failure(dto.ErrorDTO{
			ErrorMessage: nf.Error(),
		}))
	case errors.As(err, &serr):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Failure(dto.ErrorDTO{
			ErrorMessage: serr.Message,
		}))
	default:
		h.logger.ErrorContext(c.UserContext(), "Unexpected product handler error", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Failure(dto.ErrorDTO{
			ErrorMessage: "internal server error",
		}))
	}
}
