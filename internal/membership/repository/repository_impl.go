package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/estateloyalty/internal/membership/domain"
	"github.com/smallbiznis/estateloyalty/pkg/db/pagination"
	"gorm.io/gorm"
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTierChange(ctx context.Context, db *gorm.DB, change *domain.TierChange) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO membership_tier_changes (
			id, session_id, customer_id, previous_tier, tier, total_spent, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		change.ID,
		change.SessionID,
		change.CustomerID,
		change.PreviousTier,
		change.Tier,
		change.TotalSpent,
		change.Metadata,
		change.CreatedAt,
	).Error
}

// ListTierChanges returns up to PageSize+1 rows, newest first. Snowflake ids
// grow with time, so the id alone is the cursor.
func (r *repo) ListTierChanges(ctx context.Context, db *gorm.DB, customerID string, page pagination.Pagination) ([]*domain.TierChange, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = 10
	}

	stmt := db.WithContext(ctx).
		Model(&domain.TierChange{}).
		Where("customer_id = ?", customerID)

	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil || id == 0 {
			return nil, ErrInvalidPageToken
		}
		stmt = stmt.Where("id < ?", id)
	}

	var changes []*domain.TierChange
	err := stmt.
		Order("id desc").
		Limit(limit + 1).
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}
