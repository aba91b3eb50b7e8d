package event

import (
	"context"
	"database/sql"
	"testing"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	event_db "eventhub/internal/event/db"
	"eventhub/internal/logger"
	"eventhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var manager = auth.Actor{ID: "mgr-1", Role: models.RoleManager, CompanyID: "co-1"}

func newTestService(t *testing.T) *Service {
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
	return NewService(event_db.NewDB(bunDB), logger.NewTestLogger())
}

func createEvent(t *testing.T, svc *Service, capacity int) *models.Event {
	t.Helper()

	created, err := svc.CreateEvent(manager, models.CreateEventRequest{
		Name: "Summer Fest", Visibility: models.VisibilityPublic,
	})
	require.NoError(t, err)

	updated, err := svc.AddEventDetails(models.EventDetailsRequest{
		EventID: created.ID, Capacity: capacity, Location: "Riverside Arena",
		DateTime: "2026-09-12T18:00:00Z",
	})
	require.NoError(t, err)
	return updated
}

func TestCreateEventRejectsDuplicateName(t *testing.T) {
	svc := newTestService(t)
	createEvent(t, svc, 100)

	_, err := svc.CreateEvent(manager, models.CreateEventRequest{
		Name: "Summer Fest", Visibility: models.VisibilityPublic,
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestAddTiersEnforcesCapacity(t *testing.T) {
	svc := newTestService(t)
	event := createEvent(t, svc, 100)

	_, err := svc.AddTiers(models.AddTiersRequest{
		EventID: event.ID,
		Tiers: []models.TierInput{
			{Name: "GA", Price: 100, Quantity: 80},
			{Name: "VIP", Price: 250, Quantity: 30},
		},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	// Within capacity is fine, and the ceiling counts existing tiers.
	result, err := svc.AddTiers(models.AddTiersRequest{
		EventID: event.ID,
		Tiers:   []models.TierInput{{Name: "GA", Price: 100, Quantity: 80}},
	})
	require.NoError(t, err)
	require.Len(t, result.Tiers, 1)

	_, err = svc.AddTiers(models.AddTiersRequest{
		EventID: event.ID,
		Tiers:   []models.TierInput{{Name: "VIP", Price: 250, Quantity: 30}},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestAddTiersRequiresCapacitySet(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.CreateEvent(manager, models.CreateEventRequest{
		Name: "Summer Fest", Visibility: models.VisibilityPublic,
	})
	require.NoError(t, err)

	_, err = svc.AddTiers(models.AddTiersRequest{
		EventID: created.ID,
		Tiers:   []models.TierInput{{Name: "GA", Price: 100, Quantity: 10}},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestBuyTicketByName(t *testing.T) {
	svc := newTestService(t)
	event := createEvent(t, svc, 100)

	_, err := svc.AddTiers(models.AddTiersRequest{
		EventID: event.ID,
		Tiers:   []models.TierInput{{Name: "GA", Price: 100, Quantity: 5}},
	})
	require.NoError(t, err)

	tier, err := svc.BuyTicket(models.BuyTicketRequest{
		EventID: event.ID, TicketName: "GA", Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, tier.Remaining)

	_, err = svc.BuyTicket(models.BuyTicketRequest{
		EventID: event.ID, TicketName: "GA", Quantity: 4,
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindInsufficientInventory, errs.KindOf(err))

	_, err = svc.BuyTicket(models.BuyTicketRequest{
		EventID: event.ID, TicketName: "VIP", Quantity: 1,
	})
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	_, err = svc.BuyTicket(models.BuyTicketRequest{
		EventID: event.ID, TicketName: "GA", Quantity: 0,
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestListCompanyEventsRoleScoped(t *testing.T) {
	svc := newTestService(t)
	createEvent(t, svc, 100)

	other := auth.Actor{ID: "mgr-2", Role: models.RoleManager, CompanyID: "co-1"}
	_, err := svc.CreateEvent(other, models.CreateEventRequest{
		Name: "Winter Gala", Visibility: models.VisibilityPrivate,
	})
	require.NoError(t, err)

	all, err := svc.ListCompanyEvents(manager)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	guest := auth.Actor{ID: "guest-1", Role: models.RoleGuest, CompanyID: "co-1"}
	own, err := svc.ListCompanyEvents(guest)
	require.NoError(t, err)
	assert.Empty(t, own)
}
