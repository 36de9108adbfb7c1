package db

import (
	"context"
	"os"
	"testing"
	"time"

	"subscription-bot/config"
	"subscription-bot/internal/models"
	"subscription-bot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB connects to TEST_DATABASE_URL and applies migrations. Skips when unset.
func newTestDB(t *testing.T) *PostgresDB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	database, err := NewPostgresDB(config.DatabaseConfig{URL: url, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(database.Close)

	require.NoError(t, database.Migrate(logger.NewNop()))
	return database
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Contains(t, names, "000001_create_profiles.up.sql")
	assert.Contains(t, names, "000002_create_payments.up.sql")
	assert.Len(t, names, 4)
}

func TestUpsertProfile_KeepsExistingName(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	id := time.Now().UnixNano()

	require.NoError(t, database.UpsertProfile(ctx, id))
	profile, err := database.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, profile.Name)

	require.NoError(t, database.UpsertProfileName(ctx, id, ""))
	profile, err = database.GetProfile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, profile.Name)
	assert.Equal(t, "", *profile.Name)

	require.NoError(t, database.UpsertProfileName(ctx, id, "Olena"))
	require.NoError(t, database.UpsertProfile(ctx, id))
	profile, err = database.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Olena", *profile.Name)
}

func TestUpsertPayment_Idempotent(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	tgID := int64(42)
	discount := 25
	payment := &models.Payment{
		PaymentID:       "cs_test_" + time.Now().Format("150405.000000"),
		TelegramID:      &tgID,
		Status:          "paid",
		Amount:          750,
		Currency:        "eur",
		DiscountPercent: &discount,
	}

	require.NoError(t, database.UpsertPayment(ctx, payment))
	require.NoError(t, database.UpsertPayment(ctx, payment))

	var count int
	err := database.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE payment_id = $1`, payment.PaymentID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := database.GetPayment(ctx, payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), *stored.TelegramID)
	assert.Equal(t, 25, *stored.DiscountPercent)
	assert.Nil(t, stored.Email)
}

func TestGetPayment_NotFound(t *testing.T) {
	database := newTestDB(t)

	_, err := database.GetPayment(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
