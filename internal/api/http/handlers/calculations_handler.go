package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/calculation-service/internal/api/dto"
	"github.com/spec-kit/calculation-service/internal/auth"
	"github.com/spec-kit/calculation-service/internal/domain"
	"github.com/spec-kit/calculation-service/internal/service"
	apperrors "github.com/spec-kit/calculation-service/pkg/util"
)

// CalculationsHandler manages calculation CRUD endpoints.
type CalculationsHandler struct {
	service *service.CalculationService
}

// NewCalculationsHandler constructs handler.
func NewCalculationsHandler(calcService *service.CalculationService) *CalculationsHandler {
	return &CalculationsHandler{service: calcService}
}

// Create POST /calculations.
func (h *CalculationsHandler) Create(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCalculationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Type == "" || len(req.Inputs) == 0 {
		return apperrors.NewValidationError("type and inputs required", nil)
	}

	calc, err := h.service.Create(c.Context(), user.ID, domain.CalculationType(req.Type), req.Inputs)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCalculationResponse(calc)})
}

// List GET /calculations.
func (h *CalculationsHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	calcs, err := h.service.List(c.Context(), user.ID)
	if err != nil {
		return err
	}
	items := make([]dto.CalculationResponse, 0, len(calcs))
	for i := range calcs {
		items = append(items, dto.NewCalculationResponse(&calcs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /calculations/:id.
func (h *CalculationsHandler) Get(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := calculationID(c)
	if err != nil {
		return err
	}

	calc, err := h.service.Get(c.Context(), user.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCalculationResponse(calc)})
}

// Update PUT /calculations/:id.
func (h *CalculationsHandler) Update(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := calculationID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCalculationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Inputs) == 0 {
		return apperrors.NewValidationError("inputs required", nil)
	}

	calc, err := h.service.Update(c.Context(), user.ID, id, req.Inputs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCalculationResponse(calc)})
}

// Delete DELETE /calculations/:id.
func (h *CalculationsHandler) Delete(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := calculationID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), user.ID, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func calculationID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewValidationError("invalid calculation id", map[string]any{"id": id})
	}
	return id, nil
}
