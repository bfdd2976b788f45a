package routes

import (
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func RoutesRouter(router fiber.Router, reference *transit.ReferenceData) {
	router.Get("/", func(c *fiber.Ctx) error {
		routes := maps.Values(reference.Routes)
		slices.SortFunc(routes, func(a *transit.Route, b *transit.Route) int {
			switch {
			case a.RouteID < b.RouteID:
				return -1
			case a.RouteID > b.RouteID:
				return 1
			default:
				return 0
			}
		})

		return c.JSON(fiber.Map{
			"routes": routes,
			"total":  len(routes),
		})
	})

	router.Get("/:identifier", func(c *fiber.Ctx) error {
		route, exists := reference.Routes[c.Params("identifier")]

		if !exists {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find Route matching Identifier",
			})
		}

		return c.JSON(route)
	})
}

func StopsRouter(router fiber.Router, reference *transit.ReferenceData) {
	router.Get("/", func(c *fiber.Ctx) error {
		stops := maps.Values(reference.Stops)
		slices.SortFunc(stops, func(a *transit.Stop, b *transit.Stop) int {
			switch {
			case a.StopID < b.StopID:
				return -1
			case a.StopID > b.StopID:
				return 1
			default:
				return 0
			}
		})

		return c.JSON(fiber.Map{
			"stops": stops,
			"total": len(stops),
		})
	})

	router.Get("/:identifier", func(c *fiber.Ctx) error {
		stop, exists := reference.Stops[c.Params("identifier")]

		if !exists {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find Stop matching Identifier",
			})
		}

		return c.JSON(stop)
	})
}
