package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cybercats/meteo-assistant/internal/assistant"
	"github.com/cybercats/meteo-assistant/internal/store"
)

var validate = validator.New()

// Answerer is the pipeline surface the routes invoke.
type Answerer interface {
	Answer(ctx context.Context, utterance string) assistant.AnswerResult
}

// askRequest is the body of the ask endpoint.
type askRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// userRequest is the registration body.
type userRequest struct {
	ID       int    `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// credentials is the login/logout body.
type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Answerer, users *store.Users) {
	v1 := app.Group("/api/v1")

	v1.Post("/assistant/ask", func(c *fiber.Ctx) error {
		var req askRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result := svc.Answer(c.UserContext(), req.Question)
		if !result.OK {
			return c.Status(statusFor(result.Reason)).JSON(result)
		}
		return c.JSON(result)
	})

	v1.Post("/users", func(c *fiber.Ctx) error {
		var req userRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		u := store.User{
			ID:       req.ID,
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		}
		if err := users.Register(u); err != nil {
			return fiber.NewError(userErrorStatus(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "user registered",
			"id":      req.ID,
		})
	})

	v1.Post("/users/login", func(c *fiber.Ctx) error {
		var req credentials
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		u, err := users.Login(req.Email, req.Password)
		if err != nil {
			return fiber.NewError(userErrorStatus(err), err.Error())
		}
		return c.JSON(fiber.Map{
			"message": "login successful",
			"name":    u.Name,
		})
	})

	v1.Post("/users/logout", func(c *fiber.Ctx) error {
		var req credentials
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := users.Logout(req.Email); err != nil {
			return fiber.NewError(userErrorStatus(err), err.Error())
		}
		return c.JSON(fiber.Map{"message": "logout successful"})
	})

	v1.Get("/users/:id/cities", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
		}

		u, err := users.Get(id)
		if err != nil {
			return fiber.NewError(userErrorStatus(err), err.Error())
		}
		return c.JSON(fiber.Map{
			"id":     u.ID,
			"cities": u.Cities,
		})
	})

	v1.Post("/users/:id/cities", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
		}

		var req struct {
			City string `json:"city" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := users.AppendCity(id, req.City); err != nil {
			return fiber.NewError(userErrorStatus(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "city saved"})
	})
}

// statusFor maps pipeline failure reasons onto HTTP statuses. Only no_data is
// a 404: the request was fine, the world had nothing to say about that city.
func statusFor(reason assistant.Reason) int {
	if reason == assistant.ReasonNoData {
		return fiber.StatusNotFound
	}
	return fiber.StatusBadRequest
}

func userErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, store.ErrLocked):
		return fiber.StatusForbidden
	case errors.Is(err, store.ErrBadCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, store.ErrDuplicateID), errors.Is(err, store.ErrDuplicateCity),
		errors.Is(err, store.ErrInvalidUser):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
