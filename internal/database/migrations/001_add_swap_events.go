package migrations

import (
	"github.com/ksred/coinkong/internal/journal"
	"gorm.io/gorm"
)

// AddSwapEvents creates the transition journal table and its lookup indexes
func AddSwapEvents(db *gorm.DB) error {
	if err := db.AutoMigrate(&journal.Event{}); err != nil {
		return err
	}

	indexes := []string{
		// Composite index for per-swap history in order
		`CREATE INDEX IF NOT EXISTS idx_swap_events_swap_time
		 ON swap_events(swap_id, occurred_at)`,

		// Index for per-user audits
		`CREATE INDEX IF NOT EXISTS idx_swap_events_user
		 ON swap_events(user_id)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
