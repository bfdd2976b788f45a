package api

import (
	"github.com/ghostbus/ghostbus/pkg/api/routes"
	"github.com/ghostbus/ghostbus/pkg/broadcast"
	"github.com/ghostbus/ghostbus/pkg/state"
	"github.com/ghostbus/ghostbus/pkg/transit"
	"github.com/gofiber/fiber/v2"
)

// SetupServer wires the query routes and the realtime websocket channel over
// the injected state cache, hub and reference tables
func SetupServer(listen string, stateCache *state.Cache, hub *broadcast.Hub, reference *transit.ReferenceData) error {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/ghost")

	group.Get("version", routes.APIVersion)

	routes.VehiclesRouter(group.Group("/vehicles"), stateCache)
	routes.RoutesRouter(group.Group("/routes"), reference)
	routes.StopsRouter(group.Group("/stops"), reference)

	RealtimeRouter(group.Group("/ws"), hub)

	return webApp.Listen(listen)
}
