package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"katalog/internal/apperror"
	"katalog/internal/middleware"
	"katalog/internal/models"
	"katalog/internal/services"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	auth    fiber.Handler
}

// NewProductHandler creates a new ProductHandler. auth guards the review route.
func NewProductHandler(service *services.ProductService, auth fiber.Handler) *ProductHandler {
	return &ProductHandler{
		service: service,
		auth:    auth,
	}
}

// RegisterRoutes registers the product routes. /top is registered before
// /:id so that it is not taken for an id.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/top", h.HandleTopProducts)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
	productRoutes.Post("/:id/reviews", h.auth, h.HandleAddReview)
}

// parseBody decodes a JSON body into v. An empty body leaves v untouched.
func parseBody(c *fiber.Ctx, v interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(v); err != nil {
		return apperror.NewValidationError("Invalid request body")
	}
	return nil
}

// HandleListProducts lists products with optional keyword search and paging.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	page := 1
	if n, err := strconv.Atoi(c.Query("pageNumber")); err == nil {
		page = n
	}

	result, err := h.service.ListProducts(c.UserContext(), c.Query("keyword"), page)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   result.Count,
		"page":    result.Page,
		"pages":   result.Pages,
		"data":    result.Products,
	})
}

// HandleTopProducts returns the best rated products.
func (h *ProductHandler) HandleTopProducts(c *fiber.Ctx) error {
	products, err := h.service.TopProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": products})
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.CreateProductInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// HandleUpdateProduct applies a partial update to a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var patch models.ProductPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}

	product, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// HandleDeleteProduct deletes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product removed successfully"})
}

// HandleAddReview adds the authenticated user's review to a product.
func (h *ProductHandler) HandleAddReview(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperror.NewAuthError("Not authorized, no token", nil)
	}

	var in services.ReviewInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	reviewer := services.Reviewer{ID: user.UserID, Name: user.Name}
	if _, err := h.service.AddReview(c.UserContext(), c.Params("id"), reviewer, in); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Review added successfully"})
}
