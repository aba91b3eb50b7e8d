package order

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"eventhub/internal/auth"
	"eventhub/internal/config"
	"eventhub/internal/errs"
	event_db "eventhub/internal/event/db"
	"eventhub/internal/logger"
	"eventhub/internal/models"
	order_db "eventhub/internal/order/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var buyer = auth.Actor{ID: "user-1", Role: models.RoleGuest, CompanyID: "co-1"}

func newTestService(t *testing.T) (*Service, *event_db.DB) {
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
		(*models.Order)(nil),
		(*models.OrderLine)(nil),
	} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	eventDB := event_db.NewDB(bunDB)
	svc := NewService(order_db.NewDB(bunDB), eventDB, nil, nil, config.TopicConfig{}, logger.NewTestLogger())
	return svc, eventDB
}

func seedEvent(t *testing.T, d *event_db.DB) (models.Event, models.TicketTier) {
	t.Helper()

	event := models.Event{
		ID:         "evt-1",
		Name:       "Summer Fest",
		Visibility: models.VisibilityPublic,
		Capacity:   100,
		CreatedBy:  "mgr-1",
		CompanyID:  "co-1",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, d.CreateEvent(event))

	tier := models.TicketTier{
		ID:        "tier-ga",
		EventID:   event.ID,
		Name:      "GA",
		Price:     100,
		Remaining: 5,
	}
	require.NoError(t, d.AddTiers([]models.TicketTier{tier}))
	return event, tier
}

func TestCreateOrderReservesAndPrices(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	resp, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, resp.Order.PaymentStatus)
	assert.Equal(t, 300.0, resp.Order.TotalAmount)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "GA", resp.Lines[0].TicketName)
	assert.Equal(t, 100.0, resp.Lines[0].Amount)

	require.Len(t, resp.RemainingTickets, 1)
	assert.Equal(t, 2, resp.RemainingTickets[0].Remaining)
}

func TestOrderLinesSnapshotUnitPrice(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	vip := models.TicketTier{ID: "tier-vip", EventID: event.ID, Name: "VIP", Price: 250, Remaining: 10}
	require.NoError(t, eventDB.AddTiers([]models.TicketTier{vip}))

	resp, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{
			{TicketID: tier.ID, Quantity: 3},
			{TicketID: vip.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	// Each line carries the per-ticket price, and the stored total is
	// reproducible from the lines alone.
	sum := 0.0
	for _, line := range resp.Lines {
		sum += float64(line.Quantity) * line.Amount
	}
	assert.Equal(t, resp.Order.TotalAmount, sum)
	assert.Equal(t, 800.0, resp.Order.TotalAmount)

	byName := map[string]models.OrderLine{}
	for _, line := range resp.Lines {
		byName[line.TicketName] = line
	}
	assert.Equal(t, 100.0, byName["GA"].Amount)
	assert.Equal(t, 250.0, byName["VIP"].Amount)

	// The same holds after an update re-prices the snapshot.
	updated, err := svc.UpdateOrder(buyer, resp.Order.ID, models.UpdateOrderRequest{
		Tickets: []models.OrderLineRequest{
			{TicketID: tier.ID, Quantity: 1},
			{TicketID: vip.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	sum = 0.0
	for _, line := range updated.Lines {
		sum += float64(line.Quantity) * line.Amount
	}
	assert.Equal(t, updated.Order.TotalAmount, sum)
	assert.Equal(t, 600.0, updated.Order.TotalAmount)
}

func TestCreateOrderInsufficientInventory(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	_, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 3}},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindInsufficientInventory, errs.KindOf(err))

	// The failed order must not have consumed any tickets.
	got, err := eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Remaining)
}

func TestCreateOrderRejectsBadLineBeforeDecrement(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	_, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{
			{TicketID: tier.ID, Quantity: 2},
			{TicketID: "tier-missing", Quantity: 1},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	got, err := eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Remaining)
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	for _, quantity := range []int{0, -2} {
		_, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
			EventID: event.ID,
			Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: quantity}},
		})
		require.Error(t, err)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	}
}

func TestUpdateOrderAdjustsByDelta(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateOrder(buyer, created.Order.ID, models.UpdateOrderRequest{
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 400.0, updated.Order.TotalAmount)

	got, err := eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Remaining)

	// Shrinking gives tickets back.
	updated, err = svc.UpdateOrder(buyer, created.Order.ID, models.UpdateOrderRequest{
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.Order.TotalAmount)

	got, err = eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Remaining)
}

func TestUpdateOrderDeltaOverSell(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateOrder(buyer, created.Order.ID, models.UpdateOrderRequest{
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 9}},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindInsufficientInventory, errs.KindOf(err))

	// Order and inventory are untouched after the rollback.
	got, err := svc.GetOrder(buyer, created.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.Order.TotalAmount)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)

	tierNow, err := eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, tierNow.Remaining)
}

func TestUpdateOrderOmittedLineDroppedWithoutRestore(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	vip := models.TicketTier{ID: "tier-vip", EventID: event.ID, Name: "VIP", Price: 250, Remaining: 10}
	require.NoError(t, eventDB.AddTiers([]models.TicketTier{vip}))

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{
			{TicketID: tier.ID, Quantity: 2},
			{TicketID: vip.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	// Update lists only the GA line; the VIP line is dropped and its
	// ticket stays consumed.
	updated, err := svc.UpdateOrder(buyer, created.Order.ID, models.UpdateOrderRequest{
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, 200.0, updated.Order.TotalAmount)

	vipNow, err := eventDB.GetTierByID(vip.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, vipNow.Remaining)
}

func TestUpdateOrderRejectsDuplicateTicketLines(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// Two lines for the same tier would each be diffed against one
	// stored quantity, under-reserving the combined total.
	_, err = svc.UpdateOrder(buyer, created.Order.ID, models.UpdateOrderRequest{
		Tickets: []models.OrderLineRequest{
			{TicketID: tier.ID, Quantity: 2},
			{TicketID: tier.ID, Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	got, err := svc.GetOrder(buyer, created.Order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)

	tierNow, err := eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, tierNow.Remaining)
}

func TestUpdateOrderForbiddenForStranger(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	stranger := auth.Actor{ID: "user-2", Role: models.RoleGuest, CompanyID: "co-1"}
	_, err = svc.UpdateOrder(stranger, created.Order.ID, models.UpdateOrderRequest{
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 2}},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestDeleteOrderRestoresInventory(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(buyer, created.Order.ID))

	got, err := eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Remaining)

	_, err = svc.GetOrder(buyer, created.Order.ID)
	assert.ErrorIs(t, err, errs.ErrOrderNotFound)
}

func TestDeleteOrderBuyerOnly(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	// Even an admin cannot cancel someone else's order.
	admin := auth.Actor{ID: "admin-1", Role: models.RoleAdmin, CompanyID: "co-1"}
	err = svc.DeleteOrder(admin, created.Order.ID)
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestExpireOrderFailsPendingAndRestores(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	svc.ExpireOrder(created.Order.ID)

	got, err := svc.GetOrder(buyer, created.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, got.Order.PaymentStatus)

	tierNow, err := eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, tierNow.Remaining)
}

func TestExpireOrderSkipsSettledOrder(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DB.UpdateOrderStatus(nil, created.Order.ID, models.OrderCompleted))

	svc.ExpireOrder(created.Order.ID)

	got, err := svc.GetOrder(buyer, created.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, got.Order.PaymentStatus)

	tierNow, err := eventDB.GetTierByID(tier.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, tierNow.Remaining)
}

func TestFailIfPendingLeavesSettledOrderAlone(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	created, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// A payment that settles between the expiry callback's read and its
	// write must win; the conditional flip reports no change.
	require.NoError(t, svc.DB.UpdateOrderStatus(nil, created.Order.ID, models.OrderCompleted))

	failed, err := svc.DB.FailIfPending(nil, created.Order.ID)
	require.NoError(t, err)
	assert.False(t, failed)

	got, err := svc.GetOrder(buyer, created.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, got.Order.PaymentStatus)

	// Still pending, the flip lands exactly once.
	second, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	failed, err = svc.DB.FailIfPending(nil, second.Order.ID)
	require.NoError(t, err)
	assert.True(t, failed)

	failed, err = svc.DB.FailIfPending(nil, second.Order.ID)
	require.NoError(t, err)
	assert.False(t, failed)
}

func TestListAllAdminOnly(t *testing.T) {
	svc, eventDB := newTestService(t)
	event, tier := seedEvent(t, eventDB)

	_, err := svc.CreateOrder(buyer, models.CreateOrderRequest{
		EventID: event.ID,
		Tickets: []models.OrderLineRequest{{TicketID: tier.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.ListAll(buyer, 1, 10)
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	admin := auth.Actor{ID: "admin-1", Role: models.RoleAdmin, CompanyID: "co-1"}
	page, err := svc.ListAll(admin, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalOrders)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Orders, 1)
}
