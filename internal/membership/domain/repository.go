package domain

import (
	"context"

	"github.com/smallbiznis/estateloyalty/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertTierChange(ctx context.Context, db *gorm.DB, change *TierChange) error
	ListTierChanges(ctx context.Context, db *gorm.DB, customerID string, page pagination.Pagination) ([]*TierChange, error)
}
