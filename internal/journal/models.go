package journal

import (
	"time"

	"gorm.io/gorm"
)

// Event is one status transition of a swap
type Event struct {
	gorm.Model `json:"-"`
	EventID    string    `gorm:"uniqueIndex" json:"event_id"`
	SwapID     string    `gorm:"index" json:"swap_id"`
	UserID     string    `json:"user_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (Event) TableName() string {
	return "swap_events"
}
