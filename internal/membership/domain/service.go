package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/estateloyalty/pkg/db/pagination"
)

// Presentation is the promotional copy derived from a discount.
type Presentation struct {
	ShowDiscount bool   `json:"show_discount"`
	Headline     string `json:"headline"`
	Body         string `json:"body"`
	CampaignCode string `json:"campaign_code"`
}

// Presenter turns a tier and its discount into display copy.
type Presenter interface {
	Present(tier Tier, discountPercent int) (Presentation, error)
}

// Snapshot is everything a screen needs to render a member's standing.
type Snapshot struct {
	SessionID       string       `json:"session_id"`
	CustomerID      string       `json:"customer_id"`
	Tier            Tier         `json:"tier"`
	DiscountPercent int          `json:"discount_percent"`
	Deal            Presentation `json:"deal"`
	TotalSpent      *float64     `json:"total_spent,omitempty"`
	TotalSpentText  string       `json:"total_spent_display,omitempty"`
	Progress        *Progress    `json:"progress,omitempty"`
	RefreshedAt     *time.Time   `json:"refreshed_at,omitempty"`
}

// Quote is a stateless classification of a spend total.
type Quote struct {
	TotalSpent      float64      `json:"total_spent"`
	TotalSpentText  string       `json:"total_spent_display"`
	Tier            Tier         `json:"tier"`
	DiscountPercent int          `json:"discount_percent"`
	Deal            Presentation `json:"deal"`
	Progress        Progress     `json:"progress"`
}

// TierInfo is one row of the published tier table.
type TierInfo struct {
	Tier            Tier    `json:"tier"`
	MinSpend        float64 `json:"min_spend"`
	MinSpendText    string  `json:"min_spend_display"`
	DiscountPercent int     `json:"discount_percent"`
}

type StartSessionRequest struct {
	CustomerID string
}

type ListTierChangesRequest struct {
	CustomerID string
	PageToken  string
	PageSize   int
}

type ListTierChangesResponse struct {
	pagination.PageInfo
	Changes []TierChange `json:"changes"`
}

type Service interface {
	StartSession(ctx context.Context, req StartSessionRequest) (Snapshot, error)
	EndSession(ctx context.Context, sessionID string) error
	Refresh(ctx context.Context, sessionID string) (Snapshot, error)
	Snapshot(ctx context.Context, sessionID string) (Snapshot, error)
	Quote(ctx context.Context, totalSpent float64) (Quote, error)
	ListTiers(ctx context.Context) ([]TierInfo, error)
	ListTierChanges(ctx context.Context, req ListTierChangesRequest) (ListTierChangesResponse, error)
}

var (
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidSession    = errors.New("invalid_session")
	ErrInvalidTotalSpent = errors.New("invalid_total_spent")
	ErrSessionNotFound   = errors.New("session_not_found")
	ErrSpendUnavailable  = errors.New("spend_unavailable")
)
