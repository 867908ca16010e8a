package handlers

import (
	"propverse/internal/apperr"
	"propverse/internal/middleware"
	"propverse/internal/models"
	"propverse/internal/query"
	"propverse/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PropertyHandler handles HTTP requests for property listings and the
// amenity catalogue.
type PropertyHandler struct {
	service *services.PropertyService
	guard   fiber.Handler
}

// NewPropertyHandler creates a new PropertyHandler. guard protects the write
// routes.
func NewPropertyHandler(service *services.PropertyService, guard fiber.Handler) *PropertyHandler {
	return &PropertyHandler{
		service: service,
		guard:   guard,
	}
}

// RegisterRoutes registers the property and amenity routes.
func (h *PropertyHandler) RegisterRoutes(router fiber.Router) {
	propertyRoutes := router.Group("/properties")
	propertyRoutes.Get("/", h.HandleList)
	propertyRoutes.Get("/:id", h.HandleGet)
	propertyRoutes.Post("/", h.guard, h.HandleCreate)
	propertyRoutes.Put("/:id", h.guard, h.HandleUpdate)
	propertyRoutes.Delete("/:id", h.guard, h.HandleDelete)

	router.Get("/amenities", h.HandleAmenities)
}

// HandleList returns one filtered, sorted page of properties. A limit above
// query.MaxLimit is served as MaxLimit, and per_page and last_page report the
// limit actually applied.
func (h *PropertyHandler) HandleList(c *fiber.Ctx) error {
	q, err := query.ParseListParams(c.Queries())
	if err != nil {
		return apperr.Respond(c, err)
	}

	properties, pagination, err := h.service.List(q)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"error":      false,
		"properties": properties,
		"pagination": pagination,
	})
}

// HandleGet returns a single property with owner, images and amenities.
func (h *PropertyHandler) HandleGet(c *fiber.Ctx) error {
	id, err := propertyID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	property, err := h.service.Get(id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"error":    false,
		"property": models.NewPropertyDetail(property),
	})
}

// HandleCreate creates a listing owned by the caller.
func (h *PropertyHandler) HandleCreate(c *fiber.Ctx) error {
	var input services.CreatePropertyInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, err)
	}

	property, err := h.service.Create(middleware.CurrentUser(c), input)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"error":    false,
		"message":  "Property created successfully",
		"property": models.NewPropertyDetail(property),
	})
}

// HandleUpdate applies a partial update. Ownership is checked before the
// body is read, so non-owners get 403 whatever they send.
func (h *PropertyHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := propertyID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	property, err := h.service.AuthorizeOwner(middleware.CurrentUser(c), id, "update")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var input services.UpdatePropertyInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c, err)
	}

	updated, err := h.service.Update(property, input)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"error":    false,
		"message":  "Property updated successfully",
		"property": models.NewPropertyDetail(updated),
	})
}

// HandleDelete removes a listing owned by the caller.
func (h *PropertyHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := propertyID(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := h.service.Delete(middleware.CurrentUser(c), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"error":   false,
		"message": "Property deleted successfully",
	})
}

// HandleAmenities returns the amenity catalogue.
func (h *PropertyHandler) HandleAmenities(c *fiber.Ctx) error {
	amenities, err := h.service.ListAmenities()
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"error":     false,
		"amenities": amenities,
	})
}

// propertyID reads the :id parameter. Ids that cannot name a property are
// reported as missing.
func propertyID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("Property not found")
	}
	return uint(id), nil
}
