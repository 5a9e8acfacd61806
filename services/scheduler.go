// services/scheduler.go
package services

import (
	"errors"
	"log"
	"time"

	"gamelog/models"

	"github.com/go-co-op/gocron/v2"
)

// StartReleaseRefresh runs a daily job that re-fetches catalog metadata for
// wishlist games that are TBA or not yet released, so release dates and cover
// art follow the catalog without any user action.
func (s *GameService) StartReleaseRefresh() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if err := s.refreshUpcomingReleases(); err != nil {
				log.Printf("[Scheduler] release refresh failed: %v", err)
			}
		}),
	)
}

func (s *GameService) refreshUpcomingReleases() error {
	today := time.Now().Format("2006-01-02")

	// ISO dates compare correctly as text, so "still unreleased" is a plain
	// string comparison against today.
	var games []models.Game
	err := s.DB.
		Where("status = ? AND rawg_id IS NOT NULL AND (release_date IS NULL OR release_date > ?)",
			models.StatusWishlist, today).
		Find(&games).Error
	if err != nil {
		return err
	}

	for _, g := range games {
		entry, err := s.Catalog.FetchGame(*g.RawgID)
		if err != nil {
			if errors.Is(err, ErrCatalogNotFound) {
				continue // delisted upstream, keep what we have
			}
			log.Printf("[Scheduler] failed to refresh rawg id %d: %v", *g.RawgID, err)
			continue
		}

		updates := map[string]interface{}{}
		if entry.ReleaseDate != nil && (g.ReleaseDate == nil || *g.ReleaseDate != *entry.ReleaseDate) {
			updates["release_date"] = *entry.ReleaseDate
		}
		if g.ImageURL == nil && entry.ImageURL != nil {
			updates["image_url"] = *entry.ImageURL
		}
		if len(updates) == 0 {
			continue
		}

		if err := s.DB.Model(&g).Updates(updates).Error; err != nil {
			log.Printf("[Scheduler] failed to update game %s: %v", g.ID, err)
		} else {
			log.Printf("✅ Refreshed release info for: %s", g.Title)
		}
	}
	return nil
}
