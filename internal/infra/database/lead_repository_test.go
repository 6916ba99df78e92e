package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/pmp-enrollment/internal/config"
	"github.com/xavierca1/pmp-enrollment/internal/entity"
)

// Runs against a disposable database only when TEST_DATABASE_URL is set.
func openTestDB(t *testing.T) *LeadRepository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := NewDBConnection(ctx, config.DBConfig{URL: url, MaxOpenConns: 2, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE leads RESTART IDENTITY`)
	require.NoError(t, err)

	return NewLeadRepository(db)
}

func TestPostgresLeadLifecycle(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	lead := newLead("dup@x.com")
	lead.IPInfo = entity.GeoInfo{IP: "1.2.3.4", Country: "India", CountryCode: "IN", Flag: entity.FlagURL("IN")}
	firstID, err := repo.Append(ctx, lead)
	require.NoError(t, err)
	_, err = repo.Append(ctx, newLead("dup@x.com"))
	require.NoError(t, err)

	updated, err := repo.MarkPaymentCompleted(ctx, "dup@x.com", "pi_1")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, firstID, updated.ID)

	again, err := repo.MarkPaymentCompleted(ctx, "dup@x.com", "pi_2")
	require.NoError(t, err)
	assert.Nil(t, again)

	none, err := repo.MarkPaymentCompleted(ctx, "nobody@x.com", "pi_3")
	require.NoError(t, err)
	assert.Nil(t, none)

	leads, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, firstID, leads[0].ID)
	assert.Equal(t, "pi_1", leads[0].PaymentID)
	assert.Equal(t, "IN", leads[0].IPInfo.CountryCode)
	assert.Empty(t, leads[1].PaymentStatus)

	foreign, err := repo.MarkPaymentCompletedByID(ctx, leads[1].ID, "other@x.com", "pi_4")
	require.NoError(t, err)
	assert.Nil(t, foreign)

	byID, err := repo.MarkPaymentCompletedByID(ctx, leads[1].ID, "dup@x.com", "pi_4")
	require.NoError(t, err)
	assert.NotNil(t, byID)

	_, err = repo.MarkPaymentCompletedByID(ctx, leads[1].ID, "dup@x.com", "pi_6")
	assert.ErrorIs(t, err, entity.ErrLeadAlreadyPaid)

	bogus, err := repo.MarkPaymentCompletedByID(ctx, "not-a-uuid", "", "pi_5")
	require.NoError(t, err)
	assert.Nil(t, bogus)
}
