package handlers

import (
	"io"
	"net/url"

	"skillswap/internal/middleware"
	"skillswap/internal/services"
	appErr "skillswap/pkg/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Accepted profile photo types and the extension each is stored under.
var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// UserHandler handles profile browsing and editing.
type UserHandler struct {
	userService    *services.UserService
	swapService    *services.SwapService
	authService    *services.AuthService
	maxUploadBytes int
	validate       *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService, swapService *services.SwapService, authService *services.AuthService, maxUploadBytes int) *UserHandler {
	return &UserHandler{
		userService:    userService,
		swapService:    swapService,
		authService:    authService,
		maxUploadBytes: maxUploadBytes,
		validate:       newValidator(),
	}
}

// RegisterRoutes registers the user routes. Static segments are registered
// before /:id so they are not captured by it.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	auth := middleware.AuthRequired(h.authService)

	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleList)
	userRoutes.Get("/search/skills", h.HandleSearchBySkill)
	userRoutes.Put("/profile", auth, h.HandleUpdateProfile)
	userRoutes.Post("/profile/photo", auth, h.HandleUploadPhoto)
	userRoutes.Post("/profile/skills", auth, h.HandleAddSkill)
	userRoutes.Delete("/profile/skills/:list/:name", auth, h.HandleRemoveSkill)
	userRoutes.Get("/:id/swaps", auth, h.HandleUserSwaps)
	userRoutes.Get("/:id", middleware.AuthOptional(h.authService), h.HandleGet)
}

// HandleList returns the public user directory.
func (h *UserHandler) HandleList(c *fiber.Ctx) error {
	var q services.ListUsersQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}
	users, page, err := h.userService.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users, "pagination": page})
}

// HandleSearchBySkill finds users offering a skill.
func (h *UserHandler) HandleSearchBySkill(c *fiber.Ctx) error {
	users, err := h.userService.SearchBySkill(c.UserContext(), c.Query("skill"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

// HandleGet returns one profile.
func (h *UserHandler) HandleGet(c *fiber.Ctx) error {
	user, err := h.userService.Get(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return appErr.New(appErr.CodeNotFound, "User not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}

// HandleUserSwaps returns a user's swap history to that user or an admin.
func (h *UserHandler) HandleUserSwaps(c *fiber.Ctx) error {
	swaps, err := h.swapService.ListForUser(c.UserContext(), middleware.CurrentUser(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"swaps": swaps})
}

// HandleUpdateProfile applies the allow-listed profile fields.
func (h *UserHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req services.ProfileInput
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	user, err := h.userService.UpdateProfile(c.UserContext(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully", "user": user})
}

// HandleAddSkill appends one skill to the caller's offered or wanted list.
func (h *UserHandler) HandleAddSkill(c *fiber.Ctx) error {
	var req services.AddSkillInput
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	user, err := h.userService.AddSkill(c.UserContext(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Skill added successfully", "user": user})
}

// HandleRemoveSkill drops one skill by name.
func (h *UserHandler) HandleRemoveSkill(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return appErr.Invalid("Validation failed", map[string]string{"name": "malformed skill name"})
	}
	user, err := h.userService.RemoveSkill(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("list"), name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Skill removed successfully", "user": user})
}

// HandleUploadPhoto stores the multipart field "profilePhoto" as the caller's photo.
func (h *UserHandler) HandleUploadPhoto(c *fiber.Ctx) error {
	fh, err := c.FormFile("profilePhoto")
	if err != nil {
		return appErr.Invalid("No file uploaded", nil)
	}
	if fh.Size > int64(h.maxUploadBytes) {
		return appErr.Invalid("File too large", map[string]string{"profilePhoto": "exceeds upload limit"})
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, int64(h.maxUploadBytes)+1))
	if err != nil {
		return err
	}
	if len(data) > h.maxUploadBytes {
		return appErr.Invalid("File too large", map[string]string{"profilePhoto": "exceeds upload limit"})
	}

	// Trust the content, not the client's filename or Content-Type.
	ext, ok := photoTypes[mimetype.Detect(data).String()]
	if !ok {
		return appErr.Invalid("Only image files are allowed", map[string]string{"profilePhoto": "must be jpeg, png or gif"})
	}

	user, err := h.userService.SavePhoto(c.UserContext(), middleware.CurrentUser(c).ID, data, ext)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile photo updated successfully", "profilePhoto": user.ProfilePhoto})
}
