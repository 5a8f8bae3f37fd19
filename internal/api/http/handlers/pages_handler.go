package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/calculation-service/internal/api/dto"
	"github.com/spec-kit/calculation-service/internal/auth"
	"github.com/spec-kit/calculation-service/internal/service"
	apperrors "github.com/spec-kit/calculation-service/pkg/util"
)

// PagesHandler renders the server-side HTML pages.
type PagesHandler struct {
	service *service.CalculationService
	appName string
}

// NewPagesHandler constructs handler.
func NewPagesHandler(calcService *service.CalculationService, appName string) *PagesHandler {
	return &PagesHandler{service: calcService, appName: appName}
}

// Index GET /.
func (h *PagesHandler) Index(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{"AppName": h.appName})
}

// Login GET /login.
func (h *PagesHandler) Login(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{"AppName": h.appName})
}

// Register GET /register.
func (h *PagesHandler) Register(c *fiber.Ctx) error {
	return c.Render("register", fiber.Map{"AppName": h.appName})
}

// Dashboard GET /dashboard lists the user's calculations.
func (h *PagesHandler) Dashboard(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	calcs, err := h.service.List(c.Context(), user.ID)
	if err != nil {
		return err
	}
	items := make([]dto.CalculationResponse, 0, len(calcs))
	for i := range calcs {
		items = append(items, dto.NewCalculationResponse(&calcs[i]))
	}

	return c.Render("dashboard", fiber.Map{
		"AppName":      h.appName,
		"User":         dto.NewUserResponse(user),
		"Calculations": items,
	})
}

// View GET /dashboard/view/:id shows a single calculation.
func (h *PagesHandler) View(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	id, err := calculationID(c)
	if err != nil {
		return err
	}

	calc, err := h.service.Get(c.Context(), user.ID, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Render("view", fiber.Map{
		"AppName":     h.appName,
		"User":        dto.NewUserResponse(user),
		"Calculation": dto.NewCalculationResponse(calc),
	})
}

// Edit GET /dashboard/edit/:id shows the edit form.
func (h *PagesHandler) Edit(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	id, err := calculationID(c)
	if err != nil {
		return err
	}

	calc, err := h.service.Get(c.Context(), user.ID, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Render("edit", fiber.Map{
		"AppName":     h.appName,
		"User":        dto.NewUserResponse(user),
		"Calculation": dto.NewCalculationResponse(calc),
	})
}
