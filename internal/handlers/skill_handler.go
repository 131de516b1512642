package handlers

import (
	"skillswap/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SkillHandler serves the public skill catalogue.
type SkillHandler struct {
	skillService *services.SkillService
}

// NewSkillHandler creates a new SkillHandler.
func NewSkillHandler(skillService *services.SkillService) *SkillHandler {
	return &SkillHandler{skillService: skillService}
}

// RegisterRoutes registers the skill routes.
func (h *SkillHandler) RegisterRoutes(router fiber.Router) {
	skillRoutes := router.Group("/skills")
	skillRoutes.Get("/suggestions", h.HandleSuggestions)
	skillRoutes.Get("/popular", h.HandlePopular)
	skillRoutes.Get("/stats", h.HandleStats)
}

func (h *SkillHandler) HandleSuggestions(c *fiber.Ctx) error {
	suggestions, err := h.skillService.Suggestions(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"suggestions": suggestions})
}

func (h *SkillHandler) HandlePopular(c *fiber.Ctx) error {
	skills, err := h.skillService.Popular(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"skills": skills})
}

func (h *SkillHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.skillService.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"stats": stats})
}
