package handlers

import (
	"skillswap/internal/middleware"
	"skillswap/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles moderation, platform messages and reports.
type AdminHandler struct {
	adminService   *services.AdminService
	messageService *services.MessageService
	authService    *services.AuthService
	validate       *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *services.AdminService, messageService *services.MessageService, authService *services.AuthService) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		messageService: messageService,
		authService:    authService,
		validate:       newValidator(),
	}
}

// RegisterRoutes registers the admin routes behind the admin gate.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	adminRoutes := router.Group("/admin", middleware.AuthRequired(h.authService), middleware.AdminRequired())
	adminRoutes.Get("/dashboard", h.HandleDashboard)
	adminRoutes.Get("/users", h.HandleListUsers)
	adminRoutes.Put("/users/:id/ban", h.HandleToggleBan)
	adminRoutes.Get("/swaps", h.HandleListSwaps)
	adminRoutes.Put("/swaps/:id/notes", h.HandleUpdateNotes)
	adminRoutes.Post("/messages", h.HandleCreateMessage)
	adminRoutes.Get("/messages", h.HandleListMessages)
	adminRoutes.Put("/messages/:id/toggle", h.HandleToggleMessage)
	adminRoutes.Get("/reports/:type", h.HandleReport)
}

func (h *AdminHandler) HandleDashboard(c *fiber.Ctx) error {
	d, err := h.adminService.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *AdminHandler) HandleListUsers(c *fiber.Ctx) error {
	var q services.AdminUserQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	users, page, err := h.adminService.ListUsers(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users, "pagination": page})
}

// HandleToggleBan bans or unbans a user. The body is optional.
func (h *AdminHandler) HandleToggleBan(c *fiber.Ctx) error {
	var req services.BanInput
	if len(c.Body()) > 0 {
		if err := parseBody(c, h.validate, &req); err != nil {
			return err
		}
	}
	user, err := h.adminService.ToggleBan(c.UserContext(), middleware.CurrentUser(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	verb := "unbanned"
	if user.IsBanned {
		verb = "banned"
	}
	return c.JSON(fiber.Map{"message": "User " + verb + " successfully", "user": user})
}

func (h *AdminHandler) HandleListSwaps(c *fiber.Ctx) error {
	var q services.AdminSwapQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	swaps, page, err := h.adminService.ListSwaps(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"swaps": swaps, "pagination": page})
}

func (h *AdminHandler) HandleUpdateNotes(c *fiber.Ctx) error {
	var req services.NotesInput
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	swap, err := h.adminService.UpdateNotes(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Admin notes updated successfully", "swap": swap})
}

func (h *AdminHandler) HandleCreateMessage(c *fiber.Ctx) error {
	var req services.CreateMessageInput
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	msg, err := h.messageService.Create(c.UserContext(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Platform message created successfully", "data": msg})
}

func (h *AdminHandler) HandleListMessages(c *fiber.Ctx) error {
	var q services.MessageListQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	msgs, page, err := h.messageService.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": msgs, "pagination": page})
}

func (h *AdminHandler) HandleToggleMessage(c *fiber.Ctx) error {
	msg, err := h.messageService.Toggle(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	verb := "deactivated"
	if msg.IsActive {
		verb = "activated"
	}
	return c.JSON(fiber.Map{"message": "Message " + verb + " successfully", "data": msg})
}

func (h *AdminHandler) HandleReport(c *fiber.Ctx) error {
	var q services.ReportQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	report, err := h.adminService.GenerateReport(c.UserContext(), c.Params("type"), q)
	if err != nil {
		return err
	}
	return c.JSON(report)
}
