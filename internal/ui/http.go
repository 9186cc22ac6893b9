package ui

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"tarsearch/internal/search"
)

// errorToJSON renders every handler error as a JSON body, keeping the status
// of *fiber.Error values and treating the rest as 500s.
func errorToJSON(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return ctx.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// NewServer exposes the query engine as a JSON API.
func NewServer(engine *search.Engine) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorToJSON,
		DisableStartupMessage: true,
	})

	c := cors.ConfigDefault
	c.ExposeHeaders = "*"
	app.Use(cors.New(c))

	api := app.Group("/api")
	api.Get("/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return &fiber.Error{Code: fiber.StatusBadRequest, Message: "q is required"}
		}
		mode := c.Query("mode", "0")
		if mode != "0" && mode != "1" {
			return &fiber.Error{Code: fiber.StatusBadRequest, Message: "mode must be 0 (disjunctive) or 1 (conjunctive)"}
		}

		results := engine.Query(query, mode == "1")
		if results == nil {
			results = []search.Result{}
		}
		return c.JSON(results)
	})

	return app
}
