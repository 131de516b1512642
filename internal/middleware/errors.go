package middleware

import (
	"errors"

	appErr "skillswap/pkg/errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler renders every error that reaches the app as JSON. Application
// errors become {message, code, ...meta}; anything else is logged and hidden
// behind a generic 500.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		ae, ok := appErr.As(err)
		if !ok || ae.Code == appErr.CodeInternal || ae.Code == appErr.CodeUnknown {
			log.Error("request failed",
				zap.String("requestId", RequestID(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Server error"})
		}

		body := fiber.Map{"message": ae.Message, "code": ae.Code}
		for k, v := range ae.Meta {
			body[k] = v
		}
		return c.Status(appErr.HTTPStatus(ae)).JSON(body)
	}
}
