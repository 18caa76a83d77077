package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/datacycle/internal/chart"
	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/location"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, c *cycle.Cycle, loc *location.Manager, renderer chart.Renderer) {
	v1 := app.Group("/api/v1")

	v1.Get("/state", func(ctx *fiber.Ctx) error {
		return ctx.JSON(newStateResponse(c.Snapshot(), loc, renderer))
	})

	v1.Post("/refresh", func(ctx *fiber.Ctx) error {
		snap, err := c.Refresh(ctx.UserContext())
		resp := newStateResponse(snap, loc, renderer)
		switch {
		case err == nil:
			return ctx.JSON(resp)
		case errors.Is(err, cycle.ErrRefreshInProgress):
			return ctx.Status(fiber.StatusConflict).JSON(resp)
		default:
			// The last good payload is still in the body.
			return ctx.Status(fiber.StatusBadGateway).JSON(resp)
		}
	})

	v1.Get("/launches", func(ctx *fiber.Ctx) error {
		launches, err := c.Launches(ctx.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read launch log")
		}
		return ctx.JSON(fiber.Map{"launches": launches})
	})

	v1.Get("/location", func(ctx *fiber.Ctx) error {
		sample, ok := loc.Current()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no location fix yet")
		}
		return ctx.JSON(sample)
	})

	v1.Put("/location", func(ctx *fiber.Ctx) error {
		var req locationRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := loc.Update(*req.Lat, *req.Lon); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sample, _ := loc.Current()
		return ctx.JSON(sample)
	})

	v1.Put("/activity", func(ctx *fiber.Ctx) error {
		var req activityRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if *req.Active {
			if err := c.Activate(); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
		} else {
			c.Deactivate()
		}
		return ctx.JSON(newStateResponse(c.Snapshot(), loc, renderer))
	})

	v1.Get("/chart", func(ctx *fiber.Ctx) error {
		snap := c.Snapshot()
		if !snap.HasData() || snap.Payload.Kind != cycle.KindChart {
			return fiber.NewError(fiber.StatusNotFound, chart.NoData)
		}
		u, ok := renderer.Render(snap.Payload.Series)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, chart.NoData)
		}
		return ctx.Redirect(u, fiber.StatusFound)
	})
}

// stateResponse is a snapshot plus the derived values a client displays.
type stateResponse struct {
	cycle.Snapshot
	Summary  string           `json:"summary"`
	ChartURL string           `json:"chartUrl,omitempty"`
	Location *location.Sample `json:"location,omitempty"`
}

func newStateResponse(snap cycle.Snapshot, loc *location.Manager, renderer chart.Renderer) stateResponse {
	resp := stateResponse{Snapshot: snap, Summary: "Loading..."}
	if snap.HasData() {
		resp.Summary = snap.Payload.Summary()
		if snap.Payload.Kind == cycle.KindChart {
			resp.ChartURL, _ = renderer.Render(snap.Payload.Series)
		}
	} else if snap.State == cycle.StateFailed {
		resp.Summary = chart.NoData
	}
	if sample, ok := loc.Current(); ok {
		resp.Location = &sample
	}
	return resp
}

// locationRequest is the body of PUT /location.
type locationRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

// activityRequest is the body of PUT /activity.
type activityRequest struct {
	Active *bool `json:"active" validate:"required"`
}
