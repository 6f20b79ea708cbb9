package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-telemetry/internal/store"
	"github.com/i474232898/forecast-telemetry/internal/units"
	"github.com/i474232898/forecast-telemetry/internal/weather"
)

var validate = validator.New()

// Deps are the components served over HTTP.
type Deps struct {
	Service *weather.Service
	History *store.MemoryStore
	Health  *weather.Health
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	service := deps.Service

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	v1.Post("/position", func(c *fiber.Ctx) error {
		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid position body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		service.IngestPosition(weather.Position{Latitude: *req.Latitude, Longitude: *req.Longitude})
		return c.SendStatus(fiber.StatusAccepted)
	})

	v1.Post("/elevation", func(c *fiber.Ctx) error {
		var req elevationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid elevation body")
		}

		service.IngestElevation(req.Value)
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/values", func(c *fiber.Ctx) error {
		batch := service.Values()
		switch c.Query("format", "flat") {
		case "flat":
			return c.JSON(batch)
		case "tree":
			return c.JSON(fiber.Map{
				"timestamp": batch.Timestamp,
				"values":    batch.Tree(),
			})
		default:
			return fiber.NewError(fiber.StatusBadRequest, "format must be flat or tree")
		}
	})

	v1.Get("/values/display", func(c *fiber.Ctx) error {
		var req displayQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(service.Display(req.Precision))
	})

	v1.Get("/values/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		batches, err := deps.History.Range(weather.BatchValues, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast history")
		}

		return c.JSON(fiber.Map{
			"from":    req.From,
			"to":      req.To,
			"batches": batches,
		})
	})

	v1.Get("/meta", func(c *fiber.Ctx) error {
		return c.JSON(service.Meta())
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		settings := service.Settings()
		return c.JSON(fiber.Map{
			"health":       deps.Health.Snapshot(),
			"gate":         service.GateState(),
			"view":         settings.View,
			"offsetHours":  settings.OffsetHours,
			"horizonHours": settings.HorizonHours,
			"refresh":      settings.RefreshInterval.String(),
			"elevationM":   service.Elevation(),
		})
	})
}

// positionRequest is the body of a position update. Pointers tell a missing
// coordinate from the equator or the prime meridian.
type positionRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// elevationRequest carries a number, null or a placeholder string.
type elevationRequest struct {
	Value any `json:"value"`
}

// displayQuery holds query parameters for the display endpoint.
type displayQuery struct {
	Precision int `validate:"min=-1,max=10"`
}

func (d *displayQuery) bind(c *fiber.Ctx) error {
	d.Precision = units.FullPrecision
	if s := c.Query("precision"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("precision must be an integer")
		}
		d.Precision = n
	}
	return nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
