package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/kelvins/geocoder"

	"github.com/fabiangomez1963/climaclick/internal/legend"
	"github.com/fabiangomez1963/climaclick/internal/plugin"
	"github.com/fabiangomez1963/climaclick/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, p *plugin.Plugin, host *WebHost) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/click", func(c *fiber.Ctx) error {
		var req clickQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := p.HandleClick(c.UserContext(), req.Lat, req.Lon, req.Hours)
		if err != nil {
			return fiber.NewError(statusForError(err), err.Error())
		}

		return c.JSON(fiber.Map{
			"provider": p.Configuration().Provider,
			"count":    len(result),
			"records":  result,
		})
	})

	v1.Get("/weather/place", func(c *fiber.Ctx) error {
		if geocoder.ApiKey == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "geocoding is not configured; set GEOCODER_API_KEY")
		}

		var req placeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		location, err := geocoder.Geocoding(geocoder.Address{
			City:    req.City,
			Country: req.Country,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "geocoding failed: "+err.Error())
		}

		result, err := p.HandleClick(c.UserContext(), location.Latitude, location.Longitude, req.Hours)
		if err != nil {
			return fiber.NewError(statusForError(err), err.Error())
		}

		return c.JSON(fiber.Map{
			"provider": p.Configuration().Provider,
			"lat":      location.Latitude,
			"lon":      location.Longitude,
			"count":    len(result),
			"records":  result,
		})
	})

	v1.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"active":    p.Configuration(),
			"providers": p.Providers(),
		})
	})

	v1.Put("/config", func(c *fiber.Ctx) error {
		var req configUpdate
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := p.Configure(req.Provider, req.Credential); err != nil {
			return fiber.NewError(statusForError(err), err.Error())
		}
		return c.JSON(p.Configuration())
	})

	v1.Get("/legend", func(c *fiber.Ctx) error {
		names := make([]string, 0, len(p.Providers()))
		for _, view := range p.Providers() {
			names = append(names, view.Provider)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(legend.RenderLegendHTML(names))
	})

	v1.Get("/messages", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"messages": host.Messages()})
	})

	v1.Get("/actions", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"actions": host.Actions()})
	})

	v1.Post("/actions/:id", func(c *fiber.Ctx) error {
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid action id")
		}
		if err := host.Trigger(id); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(fiber.Map{"triggered": id})
	})
}

// clickQuery holds the query parameters of a map click.
type clickQuery struct {
	Lat   float64 `validate:"latitude"`
	Lon   float64 `validate:"longitude"`
	Hours int     `validate:"gte=0,lte=120"`
}

func (q *clickQuery) bind(c *fiber.Ctx) error {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return errors.New("invalid lat; expected a decimal degree value")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return errors.New("invalid lon; expected a decimal degree value")
	}

	hours, err := parseHours(c)
	if err != nil {
		return err
	}

	q.Lat = lat
	q.Lon = lon
	q.Hours = hours
	return validate.Struct(q)
}

// placeQuery holds the query parameters of a place-name lookup.
type placeQuery struct {
	City    string `validate:"required"`
	Country string `validate:"required"`
	Hours   int    `validate:"gte=0,lte=120"`
}

func (q *placeQuery) bind(c *fiber.Ctx) error {
	q.City = c.Query("city")
	q.Country = c.Query("country")

	hours, err := parseHours(c)
	if err != nil {
		return err
	}
	q.Hours = hours

	return validate.Struct(q)
}

func parseHours(c *fiber.Ctx) (int, error) {
	hoursStr := c.Query("h")
	if hoursStr == "" {
		return 0, nil
	}
	hours, err := strconv.Atoi(hoursStr)
	if err != nil {
		return 0, errors.New("invalid h; expected a whole number of hours")
	}
	return hours, nil
}

// configUpdate is the PUT /config request body.
type configUpdate struct {
	Provider   string `json:"provider" validate:"required"`
	Credential string `json:"credential"`
}

// statusForError maps workflow errors onto HTTP statuses.
func statusForError(err error) int {
	if errors.Is(err, plugin.ErrFetchInFlight) {
		return fiber.StatusTooManyRequests
	}
	if errors.Is(err, weather.ErrUnknownProvider) {
		return fiber.StatusBadRequest
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return fiber.StatusBadRequest
	}

	var provErr *weather.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Kind {
		case weather.FailMissingCredential:
			return fiber.StatusPreconditionFailed
		case weather.FailLocationNotFound:
			return fiber.StatusNotFound
		case weather.FailTimeout, weather.FailConnection, weather.FailHTTP, weather.FailMalformed:
			return fiber.StatusBadGateway
		}
	}
	return fiber.StatusInternalServerError
}
