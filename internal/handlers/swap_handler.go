package handlers

import (
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/services"
	appErr "skillswap/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// SwapHandler handles HTTP requests for swaps.
type SwapHandler struct {
	swapService *services.SwapService
	authService *services.AuthService
	validate    *validator.Validate
}

// NewSwapHandler creates a new SwapHandler.
func NewSwapHandler(swapService *services.SwapService, authService *services.AuthService) *SwapHandler {
	return &SwapHandler{
		swapService: swapService,
		authService: authService,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the swap routes. All of them require a token.
func (h *SwapHandler) RegisterRoutes(router fiber.Router) {
	swapRoutes := router.Group("/swaps", middleware.AuthRequired(h.authService))
	swapRoutes.Post("/", h.HandleCreate)
	swapRoutes.Get("/my-swaps", h.HandleMySwaps)
	swapRoutes.Get("/:id", h.HandleGet)
	swapRoutes.Put("/:id/status", h.HandleUpdateStatus)
	swapRoutes.Post("/:id/feedback", h.HandleFeedback)
	swapRoutes.Post("/:id/report", h.HandleReport)
	swapRoutes.Delete("/:id", h.HandleDelete)
}

// createSwapRequest accepts the canonical body plus the field names older
// clients send.
type createSwapRequest struct {
	services.CreateSwapInput
	ReceiverID            string            `json:"receiverId"`
	SkillOffered          *models.SkillTerm `json:"skillOffered"`
	SkillRequested        *models.SkillTerm `json:"skillRequested"`
	RequesterOfferedSkill string            `json:"requesterOfferedSkill"`
	RequesterWantedSkill  string            `json:"requesterWantedSkill"`
}

func (r *createSwapRequest) normalize() services.CreateSwapInput {
	in := r.CreateSwapInput
	if in.ProviderID == "" {
		in.ProviderID = r.ReceiverID
	}
	if in.OfferedSkill.Name == "" {
		switch {
		case r.SkillOffered != nil:
			in.OfferedSkill = *r.SkillOffered
		case r.RequesterOfferedSkill != "":
			in.OfferedSkill = models.SkillTerm{Name: r.RequesterOfferedSkill}
		}
	}
	if in.RequestedSkill.Name == "" {
		switch {
		case r.SkillRequested != nil:
			in.RequestedSkill = *r.SkillRequested
		case r.RequesterWantedSkill != "":
			in.RequestedSkill = models.SkillTerm{Name: r.RequesterWantedSkill}
		}
	}
	return in
}

// HandleCreate opens a swap request.
func (h *SwapHandler) HandleCreate(c *fiber.Ctx) error {
	var req createSwapRequest
	if err := c.BodyParser(&req); err != nil {
		return appErr.Invalid("Invalid request body", map[string]string{"body": err.Error()})
	}
	in := req.normalize()
	if err := validateStruct(h.validate, &in); err != nil {
		return err
	}

	swap, err := h.swapService.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Swap request created successfully",
		"swap":    swap,
	})
}

// HandleMySwaps lists the caller's swaps.
func (h *SwapHandler) HandleMySwaps(c *fiber.Ctx) error {
	var q services.MySwapsQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	swaps, err := h.swapService.ListMine(c.UserContext(), middleware.CurrentUser(c).ID, q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"swaps": swaps})
}

// HandleGet returns one swap.
func (h *SwapHandler) HandleGet(c *fiber.Ctx) error {
	swap, err := h.swapService.Get(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"swap": swap})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateStatus moves a swap along its lifecycle.
func (h *SwapHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return appErr.Invalid("Invalid request body", map[string]string{"body": err.Error()})
	}
	// Status checks run in the service, after the existence check.
	swap, err := h.swapService.UpdateStatus(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Swap " + string(swap.Status) + " successfully",
		"swap":    swap,
	})
}

// HandleFeedback records the caller's rating of a completed swap.
func (h *SwapHandler) HandleFeedback(c *fiber.Ctx) error {
	var req services.FeedbackInput
	if err := c.BodyParser(&req); err != nil {
		return appErr.Invalid("Invalid request body", map[string]string{"body": err.Error()})
	}
	swap, err := h.swapService.SubmitFeedback(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Feedback submitted successfully", "swap": swap})
}

// HandleReport flags a swap for moderation.
func (h *SwapHandler) HandleReport(c *fiber.Ctx) error {
	var req services.ReportInput
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	swap, err := h.swapService.Report(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Swap reported successfully", "swap": swap})
}

// HandleDelete removes a swap request.
func (h *SwapHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.swapService.Delete(c.UserContext(), middleware.CurrentUser(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Swap cancelled successfully"})
}
