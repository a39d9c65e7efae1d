package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/estateloyalty/internal/membership/domain"
	"github.com/smallbiznis/estateloyalty/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.TierChange{}))
	return db
}

func TestInsertAndListTierChanges(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	steps := []struct {
		prev, next domain.Tier
		spent      float64
	}{
		{domain.TierSapphire, domain.TierBronze, 1_000_000},
		{domain.TierBronze, domain.TierSilver, 5_000_000},
		{domain.TierSilver, domain.TierGold, 12_000_000},
	}
	for i, step := range steps {
		require.NoError(t, r.InsertTierChange(ctx, db, &domain.TierChange{
			ID:           node.Generate(),
			SessionID:    "sess-1",
			CustomerID:   "cust-1",
			PreviousTier: step.prev,
			Tier:         step.next,
			TotalSpent:   step.spent,
			Metadata:     datatypes.JSONMap{"source": "test"},
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, r.InsertTierChange(ctx, db, &domain.TierChange{
		ID:           node.Generate(),
		SessionID:    "sess-2",
		CustomerID:   "cust-2",
		PreviousTier: domain.TierSapphire,
		Tier:         domain.TierPlatinum,
		TotalSpent:   25_000_000,
		CreatedAt:    base,
	}))

	first, err := r.ListTierChanges(ctx, db, "cust-1", pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, domain.TierGold, first[0].Tier)
	assert.Equal(t, domain.TierSilver, first[1].Tier)
	assert.Equal(t, 12_000_000.0, first[0].TotalSpent)
	assert.Equal(t, "test", first[0].Metadata["source"])

	token, err := pagination.EncodeCursor(pagination.Cursor{ID: first[1].ID.String()})
	require.NoError(t, err)

	second, err := r.ListTierChanges(ctx, db, "cust-1", pagination.Pagination{PageSize: 2, PageToken: token})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, domain.TierBronze, second[0].Tier)
}

func TestListTierChangesRejectsBadToken(t *testing.T) {
	db := setupDB(t)
	_, err := Provide().ListTierChanges(context.Background(), db, "cust-1", pagination.Pagination{PageToken: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}
