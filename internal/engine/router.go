package engine

import "github.com/gofiber/fiber/v2"

func RegisterValidateRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	api := app.Group("/api/validate", middleware...)

	api.Post("/", h.ValidateText)
	api.Post("/:ruleset", h.ValidateRuleSet)
}
