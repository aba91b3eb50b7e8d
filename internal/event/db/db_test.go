package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"eventhub/internal/errs"
	"eventhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Event)(nil),
		(*models.TicketTier)(nil),
	} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	return NewDB(bunDB)
}

func seedEventWithTier(t *testing.T, d *DB, remaining int) (models.Event, models.TicketTier) {
	t.Helper()

	event := models.Event{
		ID:         "evt-1",
		Name:       "Summer Fest",
		Visibility: models.VisibilityPublic,
		Capacity:   100,
		CreatedBy:  "user-1",
		CompanyID:  "co-1",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, d.CreateEvent(event))

	tier := models.TicketTier{
		ID:        "tier-ga",
		EventID:   event.ID,
		Name:      "GA",
		Price:     100,
		Remaining: remaining,
	}
	require.NoError(t, d.AddTiers([]models.TicketTier{tier}))
	return event, tier
}

func TestReserveTierDecrements(t *testing.T) {
	d := newTestDB(t)
	_, tier := seedEventWithTier(t, d, 5)

	require.NoError(t, d.ReserveTier(nil, tier.ID, 3))

	got, err := d.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Remaining)
}

func TestReserveTierRejectsOversell(t *testing.T) {
	d := newTestDB(t)
	_, tier := seedEventWithTier(t, d, 5)

	require.NoError(t, d.ReserveTier(nil, tier.ID, 3))

	err := d.ReserveTier(nil, tier.ID, 3)
	require.Error(t, err)
	assert.Equal(t, errs.KindInsufficientInventory, errs.KindOf(err))

	// The failed reservation must not have touched the count.
	got, err := d.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Remaining)
}

func TestReserveTierExactRemainder(t *testing.T) {
	d := newTestDB(t)
	_, tier := seedEventWithTier(t, d, 5)

	require.NoError(t, d.ReserveTier(nil, tier.ID, 5))

	got, err := d.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Remaining)
}

func TestRestoreTier(t *testing.T) {
	d := newTestDB(t)
	_, tier := seedEventWithTier(t, d, 5)

	require.NoError(t, d.ReserveTier(nil, tier.ID, 4))

	rows, err := d.RestoreTier(nil, tier.ID, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	got, err := d.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Remaining)
}

func TestRestoreTierMissingTier(t *testing.T) {
	d := newTestDB(t)
	seedEventWithTier(t, d, 5)

	rows, err := d.RestoreTier(nil, "tier-gone", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
}

func TestGetTierByNameNotFound(t *testing.T) {
	d := newTestDB(t)
	event, _ := seedEventWithTier(t, d, 5)

	_, err := d.GetTierByName(event.ID, "VIP")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
}

func TestSumTierQuantities(t *testing.T) {
	d := newTestDB(t)
	event, _ := seedEventWithTier(t, d, 5)

	require.NoError(t, d.AddTiers([]models.TicketTier{
		{ID: "tier-vip", EventID: event.ID, Name: "VIP", Price: 250, Remaining: 10},
	}))

	total, err := d.SumTierQuantities(event.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, total)
}
