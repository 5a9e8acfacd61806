package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gamelog/models"
	"gamelog/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type GameService struct {
	DB      *gorm.DB
	Catalog CatalogClient
}

func NewGameService(db *gorm.DB, catalog CatalogClient) *GameService {
	return &GameService{DB: db, Catalog: catalog}
}

// GameSaveResult is the outcome of ingesting a catalog game: either the
// freshly created record or the one that already held the rawg id.
type GameSaveResult struct {
	Game          *models.Game `json:"game"`
	AlreadyExists bool         `json:"already_exists"`
	Message       string       `json:"message"`
}

// GamePage is one page of a filtered collection view.
type GamePage struct {
	Content       []models.Game `json:"content"`
	Page          int           `json:"page"`
	Size          int           `json:"size"`
	TotalElements int64         `json:"total_elements"`
	TotalPages    int           `json:"total_pages"`
}

// UpdateGameRequest carries the user-editable fields. Every field is written
// as sent — a null clears the stored value — except status, which must always
// be one of the five known values.
type UpdateGameRequest struct {
	Status      string           `json:"status"`
	Rating      *float64         `json:"rating"`
	Notes       *string          `json:"notes"`
	Platform    *string          `json:"platform"`
	CompletedAt *models.DateOnly `json:"completed_at"`
}

const defaultPageSize = 8

// statusFilterAll is the sentinel meaning "no status restriction".
const statusFilterAll = "ALL"

// --- Core collection operations ---

// saveGameFromCatalog ingests one catalog game under the given status. A rawg
// id already in the store short-circuits before any network call; a concurrent
// duplicate insert is absorbed by re-reading the winning record.
func (s *GameService) saveGameFromCatalog(rawgID int64, status models.GameStatus) (*models.Game, bool, error) {
	var existing models.Game
	err := s.DB.First(&existing, "rawg_id = ?", rawgID).Error
	if err == nil {
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to check for existing game: %w", err)
	}

	entry, err := s.Catalog.FetchGame(rawgID)
	if err != nil {
		return nil, false, err
	}
	if entry.Title == "" {
		return nil, false, fmt.Errorf("%w: catalog entry %d has no title", ErrCatalogParse, rawgID)
	}

	imageURL := entry.ImageURL
	if imageURL != nil && utils.CoverMirrorEnabled() {
		if mirrored, err := utils.MirrorCover(*imageURL); err != nil {
			log.Printf("⚠️  failed to mirror cover for rawg id %d, keeping catalog URL: %v", rawgID, err)
		} else {
			imageURL = &mirrored
		}
	}

	game := &models.Game{
		ID:          uuid.NewString(),
		Status:      status,
		RawgID:      &rawgID,
		Title:       entry.Title,
		Slug:        slug.Make(entry.Title),
		ReleaseDate: entry.ReleaseDate,
		ImageURL:    imageURL,
	}

	if err := s.DB.Create(game).Error; err != nil {
		if !isDuplicateKey(err) {
			return nil, false, fmt.Errorf("failed to save game: %w", err)
		}
		// Lost the insert race on rawg_id — someone else ingested the same
		// game between our existence check and the create. Their record wins.
		var winner models.Game
		if err := s.DB.First(&winner, "rawg_id = ?", rawgID).Error; err != nil {
			return nil, false, fmt.Errorf("failed to load game after duplicate insert: %w", err)
		}
		return &winner, true, nil
	}

	return game, false, nil
}

// libraryPage returns one page of the library view (everything except
// wishlist), PLAYING entries first, then most recently updated.
func (s *GameService) libraryPage(page, size int, statusFilter, search string) (*GamePage, error) {
	page, size = normalizePaging(page, size)

	query := s.DB.Model(&models.Game{}).Where("status <> ?", models.StatusWishlist)

	if statusFilter != "" && !strings.EqualFold(statusFilter, statusFilterAll) {
		status, err := models.ParseGameStatus(statusFilter)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, statusFilter)
		}
		query = query.Where("status = ?", status)
	}
	query = applyTitleSearch(query, search)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count library games: %w", err)
	}

	games := make([]models.Game, 0, size)
	err := query.
		Order("CASE WHEN status = 'PLAYING' THEN 0 ELSE 1 END, updated_at DESC").
		Limit(size).Offset(page * size).
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch library games: %w", err)
	}

	return newGamePage(games, page, size, total), nil
}

// wishlistPage returns one page of the wishlist, most recently updated first.
func (s *GameService) wishlistPage(page, size int, search string) (*GamePage, error) {
	page, size = normalizePaging(page, size)

	query := s.DB.Model(&models.Game{}).Where("status = ?", models.StatusWishlist)
	query = applyTitleSearch(query, search)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count wishlist games: %w", err)
	}

	games := make([]models.Game, 0, size)
	err := query.
		Order("updated_at DESC").
		Limit(size).Offset(page * size).
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wishlist games: %w", err)
	}

	return newGamePage(games, page, size, total), nil
}

// wishlistReleases projects every wishlist entry against today's date.
func (s *GameService) wishlistReleases() ([]models.WishlistRelease, error) {
	var games []models.Game
	err := s.DB.Where("status = ?", models.StatusWishlist).
		Order("updated_at DESC").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wishlist games: %w", err)
	}

	now := time.Now()
	rows := make([]models.WishlistRelease, 0, len(games))
	for i := range games {
		rows = append(rows, games[i].ReleaseInfo(now))
	}
	return rows, nil
}

func (s *GameService) getGame(id string) (*models.Game, error) {
	var game models.Game
	if err := s.DB.First(&game, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w with id: %s", ErrGameNotFound, id)
		}
		return nil, fmt.Errorf("failed to load game %s: %w", id, err)
	}
	return &game, nil
}

// applyUpdate overwrites the user-editable fields with the request as sent
// and refreshes updated_at. Catalog-sourced fields are untouchable here.
func (s *GameService) applyUpdate(id string, req UpdateGameRequest) (*models.Game, error) {
	game, err := s.getGame(id)
	if err != nil {
		return nil, err
	}

	status, err := models.ParseGameStatus(req.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, req.Status)
	}

	game.Status = status
	game.Rating = req.Rating
	game.Notes = req.Notes
	game.Platform = req.Platform
	game.CompletedAt = req.CompletedAt

	if err := s.DB.Save(game).Error; err != nil {
		return nil, fmt.Errorf("failed to update game %s: %w", id, err)
	}
	return game, nil
}

// removeGame deletes by id. Deleting a missing id is a no-op, not an error.
func (s *GameService) removeGame(id string) error {
	if err := s.DB.Delete(&models.Game{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete game %s: %w", id, err)
	}
	return nil
}

// --- HTTP endpoints ---

// GetLibraryGames returns the paged library view (wishlist excluded).
func (s *GameService) GetLibraryGames(c *fiber.Ctx) error {
	result, err := s.libraryPage(
		c.QueryInt("page", 0),
		c.QueryInt("size", defaultPageSize),
		c.Query("status", statusFilterAll),
		c.Query("search", ""),
	)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(result)
}

// GetWishlistGames returns the paged wishlist view.
func (s *GameService) GetWishlistGames(c *fiber.Ctx) error {
	result, err := s.wishlistPage(
		c.QueryInt("page", 0),
		c.QueryInt("size", defaultPageSize),
		c.Query("search", ""),
	)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(result)
}

// GetWishlistReleases returns the wishlist table rows with TBA/countdown info.
func (s *GameService) GetWishlistReleases(c *fiber.Ctx) error {
	rows, err := s.wishlistReleases()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(rows)
}

// SearchCatalogGames passes a free-text search through to the catalog.
func (s *GameService) SearchCatalogGames(c *fiber.Ctx) error {
	entries, err := s.Catalog.SearchGames(c.Query("query"), 1, defaultPageSize)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(entries)
}

// AddGameToLibrary ingests a catalog game into the library as BACKLOG.
func (s *GameService) AddGameToLibrary(c *fiber.Ctx) error {
	return s.addGame(c, models.StatusBacklog)
}

// AddGameToWishlist ingests a catalog game as WISHLIST.
func (s *GameService) AddGameToWishlist(c *fiber.Ctx) error {
	return s.addGame(c, models.StatusWishlist)
}

func (s *GameService) addGame(c *fiber.Ctx, status models.GameStatus) error {
	rawgID, err := strconv.ParseInt(c.Params("rawgId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid rawg id"})
	}

	game, existed, err := s.saveGameFromCatalog(rawgID, status)
	if err != nil {
		return errorJSON(c, err)
	}

	message := "Game added successfully"
	if existed {
		message = "Game already exists in the library"
	}
	return c.JSON(GameSaveResult{Game: game, AlreadyExists: existed, Message: message})
}

// GetGameByID returns a single tracked game.
func (s *GameService) GetGameByID(c *fiber.Ctx) error {
	game, err := s.getGame(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(game)
}

// UpdateGame overwrites the user-editable fields of a tracked game.
func (s *GameService) UpdateGame(c *fiber.Ctx) error {
	var req UpdateGameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid JSON",
			"details": err.Error(),
		})
	}

	game, err := s.applyUpdate(c.Params("id"), req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(game)
}

// DeleteGame removes a tracked game. Always 204, even for unknown ids.
func (s *GameService) DeleteGame(c *fiber.Ctx) error {
	if err := s.removeGame(c.Params("id")); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- Helpers ---

func normalizePaging(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size < 1 || size > 100 {
		size = defaultPageSize
	}
	return page, size
}

func applyTitleSearch(query *gorm.DB, search string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return query
	}
	return query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
}

func newGamePage(games []models.Game, page, size int, total int64) *GamePage {
	return &GamePage{
		Content:       games,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
	}
}

// isDuplicateKey matches unique-constraint violations. TranslateError covers
// the common dialects; the text checks catch drivers that predate it.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint") ||
		strings.Contains(err.Error(), "duplicate key")
}

// errorJSON translates a service error into the caller-facing status code.
func errorJSON(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrGameNotFound), errors.Is(err, ErrCatalogNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrCatalogUnavailable), errors.Is(err, ErrCatalogParse):
		log.Printf("❌ external catalog failure: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "external catalog failure: " + err.Error(),
		})
	default:
		log.Printf("DB error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
