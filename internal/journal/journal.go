// Package journal keeps an audit trail of swap status transitions in an
// in-memory sqlite database. The trail lives as long as the process.
package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksred/coinkong/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// RecordTransition appends the move of swap from -> swap.Status
func (d *Database) RecordTransition(ctx context.Context, swap types.Swap, from types.SwapStatus, detail string) error {
	event := &Event{
		EventID:    uuid.New().String(),
		SwapID:     swap.ID,
		UserID:     swap.UserID,
		FromStatus: string(from),
		ToStatus:   string(swap.Status),
		Detail:     detail,
		OccurredAt: swap.UpdatedAt,
	}
	if err := d.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to record transition for %s: %w", swap.ID, err)
	}
	return nil
}

// History returns the transitions of a swap, oldest first
func (d *Database) History(ctx context.Context, swapID string) ([]Event, error) {
	var events []Event
	err := d.db.WithContext(ctx).
		Where("swap_id = ?", swapID).
		Order("occurred_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CountByStatus tallies how many transitions ended in each status
func (d *Database) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ToStatus string
		Count    int64
	}
	err := d.db.WithContext(ctx).
		Model(&Event{}).
		Select("to_status, count(*) as count").
		Group("to_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ToStatus] = r.Count
	}
	return counts, nil
}
