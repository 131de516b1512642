package handlers

import (
	"skillswap/internal/middleware"
	"skillswap/internal/services"

	"github.com/gofiber/fiber/v2"
)

// MessageHandler serves platform messages to their recipients.
type MessageHandler struct {
	messageService *services.MessageService
	authService    *services.AuthService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService *services.MessageService, authService *services.AuthService) *MessageHandler {
	return &MessageHandler{messageService: messageService, authService: authService}
}

// RegisterRoutes registers the recipient-facing message routes.
func (h *MessageHandler) RegisterRoutes(router fiber.Router) {
	messageRoutes := router.Group("/messages", middleware.AuthRequired(h.authService))
	messageRoutes.Get("/", h.HandleInbox)
	messageRoutes.Post("/:id/read", h.HandleMarkRead)
}

func (h *MessageHandler) HandleInbox(c *fiber.Ctx) error {
	msgs, err := h.messageService.Inbox(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func (h *MessageHandler) HandleMarkRead(c *fiber.Ctx) error {
	if err := h.messageService.MarkRead(c.UserContext(), middleware.CurrentUser(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Message marked as read"})
}
