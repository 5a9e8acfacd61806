// handlers/game.go
package handlers

import (
	"gamelog/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGameRoutes(app *fiber.App, gameService *services.GameService) {
	api := app.Group("/api/games")

	// Collection views
	api.Get("/library", gameService.GetLibraryGames)
	api.Get("/wishlist", gameService.GetWishlistGames)
	api.Get("/wishlist/table", gameService.GetWishlistReleases)

	// RAWG catalog pass-through
	api.Get("/search", gameService.SearchCatalogGames)

	// Ingestion by rawg id — dedup guaranteed by the unique index on rawg_id
	api.Post("/add-library/:rawgId", gameService.AddGameToLibrary)
	api.Post("/add-wishlist/:rawgId", gameService.AddGameToWishlist)

	// Single-record paths
	api.Get("/:id", gameService.GetGameByID)
	api.Put("/:id", gameService.UpdateGame)
	api.Delete("/:id", gameService.DeleteGame)
}
