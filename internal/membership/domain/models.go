package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TierChange records a tier transition applied to a session.
type TierChange struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	SessionID    string            `gorm:"column:session_id;not null" json:"session_id"`
	CustomerID   string            `gorm:"column:customer_id;not null;index" json:"customer_id"`
	PreviousTier Tier              `gorm:"column:previous_tier;type:text;not null" json:"previous_tier"`
	Tier         Tier              `gorm:"column:tier;type:text;not null" json:"tier"`
	TotalSpent   float64           `gorm:"column:total_spent;type:numeric;not null" json:"total_spent"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (TierChange) TableName() string { return "membership_tier_changes" }
