package routes

import (
	"github.com/ghostbus/ghostbus/pkg/state"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/ghostbus/ghostbus/pkg/util"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
)

func VehiclesRouter(router fiber.Router, stateCache *state.Cache) {
	router.Get("/", func(c *fiber.Ctx) error {
		return listVehicles(c, stateCache)
	})
	router.Get("/:identifier", func(c *fiber.Ctx) error {
		return getVehicle(c, stateCache)
	})
}

func listVehicles(c *fiber.Ctx, stateCache *state.Cache) error {
	vehicles := stateCache.Snapshot()

	if statusQuery := c.Query("status"); statusQuery != "" {
		status := transit.VehicleStatus(statusQuery)

		if status != transit.VehicleStatusActive && status != transit.VehicleStatusGhost {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "status must be one of active or ghost",
			})
		}

		util.InPlaceFilter(&vehicles, func(vehicle transit.VehicleState) bool {
			return vehicle.Status == status
		})
	}

	vehiclesReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, vehicles)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce vehicles",
		})
	}

	return c.JSON(fiber.Map{
		"vehicles": vehiclesReduced,
		"total":    len(vehicles),
	})
}

func getVehicle(c *fiber.Ctx, stateCache *state.Cache) error {
	identifier := c.Params("identifier")

	vehicle, found := stateCache.Get(identifier)

	if !found {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Vehicle matching Identifier",
		})
	}

	return c.JSON(vehicle)
}
