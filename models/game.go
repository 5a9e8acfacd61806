// models/game.go
package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// GameStatus is the tracking state of a game in the collection.
type GameStatus string

const (
	StatusWishlist  GameStatus = "WISHLIST"  // want to play, not owned yet
	StatusBacklog   GameStatus = "BACKLOG"   // owned, not started
	StatusPlaying   GameStatus = "PLAYING"   // currently playing
	StatusCompleted GameStatus = "COMPLETED" // finished
	StatusDropped   GameStatus = "DROPPED"   // stopped playing
)

// ParseGameStatus maps a user-supplied string onto one of the five statuses,
// case-insensitively. Unknown statuses are rejected here, at the HTTP edge —
// the column must never hold anything else.
func ParseGameStatus(s string) (GameStatus, error) {
	switch status := GameStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case StatusWishlist, StatusBacklog, StatusPlaying, StatusCompleted, StatusDropped:
		return status, nil
	default:
		return "", fmt.Errorf("invalid status: %s", s)
	}
}

type Game struct {
	ID     string     `json:"id" gorm:"primaryKey"`
	Status GameStatus `json:"status" gorm:"not null;default:'BACKLOG'"`

	// 🎮 User-tracked fields
	Rating      *float64  `json:"rating"`
	Notes       *string   `json:"notes"`
	Platform    *string   `json:"platform"`
	CompletedAt *DateOnly `json:"completed_at"`

	// 📦 RAWG catalog data — written by ingestion and the release refresh job,
	// never by the user update path
	RawgID      *int64  `json:"rawg_id" gorm:"uniqueIndex"`
	Title       string  `json:"title" gorm:"not null"`
	Slug        string  `json:"slug" gorm:"index"`
	ReleaseDate *string `json:"release_date"` // textual date from the catalog; nil = TBA
	ImageURL    *string `json:"image_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WishlistRelease is the wishlist-table projection of a game: release state
// relative to "today". It is recomputed on every read, never stored.
type WishlistRelease struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	ReleaseDate   *string `json:"release_date"`
	TBA           bool    `json:"tba"`
	DaysToRelease *int64  `json:"days_to_release"`
	IsReleased    bool    `json:"is_released"`
}

// ReleaseInfo projects the game's release date against the given moment.
func (g *Game) ReleaseInfo(today time.Time) WishlistRelease {
	info := WishlistRelease{ID: g.ID, Title: g.Title, ReleaseDate: g.ReleaseDate}

	if g.ReleaseDate == nil {
		info.TBA = true
		return info
	}

	release, err := time.Parse(dateOnlyLayout, *g.ReleaseDate)
	if err != nil {
		// Catalog occasionally ships non-ISO text; a date we can't read is
		// neither TBA nor released.
		return info
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if release.After(day) {
		days := int64(release.Sub(day).Hours() / 24)
		info.DaysToRelease = &days
	} else {
		info.IsReleased = true
	}
	return info
}

const dateOnlyLayout = "2006-01-02"

// DateOnly is a calendar date without a time component, stored as a DATE
// column and rendered as "2006-01-02" in JSON.
type DateOnly struct {
	time.Time
}

func NewDateOnly(t time.Time) DateOnly {
	return DateOnly{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (DateOnly) GormDataType() string { return "date" }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateOnlyLayout) + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	d.Time = t
	return nil
}

func (d DateOnly) Value() (driver.Value, error) {
	return d.Format(dateOnlyLayout), nil
}

func (d *DateOnly) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		d.Time = v
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DateOnly", src)
	}
}

func (d *DateOnly) scanString(s string) error {
	// Drivers disagree on how much of the day they return; keep the date part.
	if len(s) > len(dateOnlyLayout) {
		s = s[:len(dateOnlyLayout)]
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return fmt.Errorf("cannot scan %q into DateOnly: %w", s, err)
	}
	d.Time = t
	return nil
}
