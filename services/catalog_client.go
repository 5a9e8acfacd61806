// gamelog/services/catalog_client.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Errors the service layer translates into HTTP statuses. Nothing below this
// package surfaces raw transport or storage errors.
var (
	ErrEmptyQuery         = errors.New("search query cannot be empty")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrGameNotFound       = errors.New("game not found")
	ErrCatalogNotFound    = errors.New("game not found in catalog")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrCatalogParse       = errors.New("malformed catalog response")
)

// CatalogEntry is one game as the external catalog describes it. Optional
// fields stay nil when the catalog omits them.
type CatalogEntry struct {
	RawgID      int64   `json:"rawg_id"`
	Title       string  `json:"title"`
	ReleaseDate *string `json:"release_date,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// CatalogClient is the read-only view of the external game catalog.
type CatalogClient interface {
	SearchGames(query string, page, pageSize int) ([]CatalogEntry, error)
	FetchGame(rawgID int64) (*CatalogEntry, error)
}

// RawgClient talks to a RAWG-compatible catalog API.
type RawgClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewRawgClient(baseURL, apiKey string) *RawgClient {
	return &RawgClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// rawgGame mirrors the catalog wire format. Pointer fields keep the parse
// lenient: absent or null just stays nil.
type rawgGame struct {
	ID              *int64  `json:"id"`
	Name            *string `json:"name"`
	Released        *string `json:"released"`
	BackgroundImage *string `json:"background_image"`
}

type rawgSearchResponse struct {
	Count   int        `json:"count"`
	Results []rawgGame `json:"results"`
}

func (g *rawgGame) toEntry() CatalogEntry {
	entry := CatalogEntry{
		ReleaseDate: g.Released,
		ImageURL:    g.BackgroundImage,
	}
	if g.ID != nil {
		entry.RawgID = *g.ID
	}
	if g.Name != nil {
		entry.Title = *g.Name
	}
	return entry
}

// SearchGames runs a free-text search against the catalog. An empty query is
// rejected before any network call.
func (c *RawgClient) SearchGames(query string, page, pageSize int) ([]CatalogEntry, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	u, err := url.Parse(fmt.Sprintf("%s/games", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: bad base URL: %v", ErrCatalogUnavailable, err)
	}
	q := u.Query()
	q.Set("key", c.APIKey)
	q.Set("search", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()

	body, err := c.get(u.String())
	if err != nil {
		return nil, err
	}

	var parsed rawgSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogParse, err)
	}

	entries := make([]CatalogEntry, 0, len(parsed.Results))
	for i := range parsed.Results {
		entries = append(entries, parsed.Results[i].toEntry())
	}
	return entries, nil
}

// FetchGame fetches a single catalog entry by its external id.
func (c *RawgClient) FetchGame(rawgID int64) (*CatalogEntry, error) {
	u, err := url.Parse(fmt.Sprintf("%s/games/%d", c.BaseURL, rawgID))
	if err != nil {
		return nil, fmt.Errorf("%w: bad base URL: %v", ErrCatalogUnavailable, err)
	}
	q := u.Query()
	q.Set("key", c.APIKey)
	u.RawQuery = q.Encode()

	body, err := c.get(u.String())
	if err != nil {
		return nil, err
	}

	var parsed rawgGame
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogParse, err)
	}

	entry := parsed.toEntry()
	if entry.RawgID == 0 {
		entry.RawgID = rawgID
	}
	return &entry, nil
}

func (c *RawgClient) get(url string) ([]byte, error) {
	resp, err := c.Client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCatalogNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: catalog returned %d", ErrCatalogUnavailable, resp.StatusCode)
	}
	return body, nil
}
