package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gamelog/models"
	"gamelog/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubCatalog struct {
	entries map[int64]services.CatalogEntry
}

func (s *stubCatalog) SearchGames(query string, page, pageSize int) ([]services.CatalogEntry, error) {
	if query == "" {
		return nil, services.ErrEmptyQuery
	}
	out := make([]services.CatalogEntry, 0)
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *stubCatalog) FetchGame(rawgID int64) (*services.CatalogEntry, error) {
	entry, ok := s.entries[rawgID]
	if !ok {
		return nil, services.ErrCatalogNotFound
	}
	return &entry, nil
}

func newTestApp(t *testing.T) (*fiber.App, *services.GameService) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Game{}))

	release := "2017-02-24"
	catalog := &stubCatalog{entries: map[int64]services.CatalogEntry{
		42: {RawgID: 42, Title: "Hollow Knight", ReleaseDate: &release},
	}}

	gameService := services.NewGameService(db, catalog)
	app := fiber.New()
	SetupGameRoutes(app, gameService)
	return app, gameService
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestIngestEndpointsDedup(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/games/add-wishlist/42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first services.GameSaveResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.False(t, first.AlreadyExists)
	assert.Equal(t, "Game added successfully", first.Message)
	assert.Equal(t, models.StatusWishlist, first.Game.Status)

	resp = doJSON(t, app, "POST", "/api/games/add-library/42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var second services.GameSaveResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, "Game already exists in the library", second.Message)
	assert.Equal(t, first.Game.ID, second.Game.ID)
}

func TestIngestEndpointErrors(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/games/add-library/not-a-number", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/games/add-library/999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLibraryEndpointRejectsBogusStatus(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "GET", "/api/games/library?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/games/library?status=ALL", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "GET", "/api/games/search", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/games/search?query=hollow", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/games/add-library/42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved services.GameSaveResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))

	body := `{"status":"playing","rating":9.0,"notes":"so good","platform":"Switch"}`
	resp = doJSON(t, app, "PUT", "/api/games/"+saved.Game.ID, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Game
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, models.StatusPlaying, updated.Status)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 9.0, *updated.Rating)
	assert.Equal(t, "Hollow Knight", updated.Title, "catalog fields survive the update")

	resp = doJSON(t, app, "PUT", "/api/games/missing-id", body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, "PUT", "/api/games/"+saved.Game.ID, `{"status":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteEndpointAlways204(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/games/add-library/42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved services.GameSaveResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&saved))

	resp = doJSON(t, app, "DELETE", "/api/games/"+saved.Game.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, "DELETE", "/api/games/"+saved.Game.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "delete is idempotent")
}

func TestWishlistTableEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, "POST", "/api/games/add-wishlist/42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/games/wishlist/table", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []models.WishlistRelease
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.False(t, rows[0].TBA)
	assert.True(t, rows[0].IsReleased)
}
