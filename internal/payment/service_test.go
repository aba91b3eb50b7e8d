package payment

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"eventhub/internal/auth"
	"eventhub/internal/config"
	"eventhub/internal/errs"
	"eventhub/internal/logger"
	"eventhub/internal/models"
	order_db "eventhub/internal/order/db"
	payment_db "eventhub/internal/payment/db"
	"eventhub/internal/payment/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const webhookSecret = "whsec_test"

var buyer = auth.Actor{ID: "user-1", Role: models.RoleGuest, CompanyID: "co-1"}

type fakeGateway struct {
	orders  int
	details *models.GatewayPaymentDetails
}

func (g *fakeGateway) CreateOrder(amount int64, currency, receipt string) (*models.GatewayOrder, error) {
	g.orders++
	return &models.GatewayOrder{
		ID:       fmt.Sprintf("gw_order_%d", g.orders),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

func (g *fakeGateway) FetchPayment(gatewayPaymentID string) (*models.GatewayPaymentDetails, error) {
	if g.details == nil {
		return &models.GatewayPaymentDetails{Method: "upi", VPA: "buyer@bank"}, nil
	}
	return g.details, nil
}

func newTestService(t *testing.T) (*Service, *order_db.DB, *fakeGateway) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Order)(nil),
		(*models.Payment)(nil),
	} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	orderDB := order_db.NewDB(bunDB)
	gw := &fakeGateway{}
	svc := NewService(payment_db.NewDB(bunDB), orderDB, gw, nil, nil, config.TopicConfig{}, webhookSecret, logger.NewTestLogger())
	return svc, orderDB, gw
}

func seedOrder(t *testing.T, orderDB *order_db.DB, total float64) models.Order {
	t.Helper()

	order := models.Order{
		ID:            uuid.NewString(),
		EventID:       "evt-1",
		UserID:        buyer.ID,
		CompanyID:     buyer.CompanyID,
		TotalAmount:   total,
		PaymentStatus: models.OrderPending,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, orderDB.InsertOrder(nil, &order))
	return order
}

func TestCreatePaymentOrderMinorUnits(t *testing.T) {
	svc, orderDB, gw := newTestService(t)
	order := seedOrder(t, orderDB, 270.50)

	resp, err := svc.CreatePaymentOrder(buyer, models.CreatePaymentOrderRequest{
		Amount: 270.50, Currency: "INR", OrderID: order.ID, Method: models.MethodUPI,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, gw.orders)
	assert.EqualValues(t, 27050, resp.GatewayOrder.Amount)
	assert.Equal(t, order.ID, resp.GatewayOrder.Receipt)
	assert.Equal(t, models.PaymentCreated, resp.Payment.Status)
	assert.Equal(t, "gw_order_1", resp.Payment.GatewayOrderID)
	assert.Equal(t, 270.50, resp.Payment.Amount)
}

func TestCreatePaymentOrderAmountMustMatch(t *testing.T) {
	svc, orderDB, _ := newTestService(t)
	order := seedOrder(t, orderDB, 300)

	_, err := svc.CreatePaymentOrder(buyer, models.CreatePaymentOrderRequest{
		Amount: 250, Currency: "INR", OrderID: order.ID, Method: models.MethodCard,
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindOrderMismatch, errs.KindOf(err))
}

func TestCreatePaymentOrderRejectsBadMethod(t *testing.T) {
	svc, orderDB, _ := newTestService(t)
	order := seedOrder(t, orderDB, 300)

	_, err := svc.CreatePaymentOrder(buyer, models.CreatePaymentOrderRequest{
		Amount: 300, Currency: "INR", OrderID: order.ID, Method: "cheque",
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestCreatePaymentOrderBuyerOnly(t *testing.T) {
	svc, orderDB, _ := newTestService(t)
	order := seedOrder(t, orderDB, 300)

	stranger := auth.Actor{ID: "user-2", Role: models.RoleGuest, CompanyID: "co-1"}
	_, err := svc.CreatePaymentOrder(stranger, models.CreatePaymentOrderRequest{
		Amount: 300, Currency: "INR", OrderID: order.ID, Method: models.MethodCard,
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestVerifyPaymentFlipsBothTogether(t *testing.T) {
	svc, orderDB, _ := newTestService(t)
	order := seedOrder(t, orderDB, 300)

	created, err := svc.CreatePaymentOrder(buyer, models.CreatePaymentOrderRequest{
		Amount: 300, Currency: "INR", OrderID: order.ID, Method: models.MethodUPI,
	})
	require.NoError(t, err)

	sig := gateway.Sign(created.Payment.GatewayOrderID, "gw_pay_1", webhookSecret)
	resp, err := svc.VerifyPayment(models.VerifyPaymentRequest{
		GatewayOrderID:   created.Payment.GatewayOrderID,
		GatewayPaymentID: "gw_pay_1",
		Signature:        sig,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPaid, resp.Payment.Status)
	assert.Equal(t, "gw_pay_1", resp.Payment.GatewayPaymentID)
	assert.Contains(t, resp.Payment.MethodDetails, "buyer@bank")
	assert.Equal(t, models.OrderCompleted, resp.Order.PaymentStatus)

	gotOrder, err := orderDB.GetOrderByID(nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCompleted, gotOrder.PaymentStatus)

	gotPayment, err := svc.GetPayment(buyer, created.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, gotPayment.Status)
}

func TestVerifyPaymentForgedSignatureIsNoOp(t *testing.T) {
	svc, orderDB, _ := newTestService(t)
	order := seedOrder(t, orderDB, 300)

	created, err := svc.CreatePaymentOrder(buyer, models.CreatePaymentOrderRequest{
		Amount: 300, Currency: "INR", OrderID: order.ID, Method: models.MethodUPI,
	})
	require.NoError(t, err)

	_, err = svc.VerifyPayment(models.VerifyPaymentRequest{
		GatewayOrderID:   created.Payment.GatewayOrderID,
		GatewayPaymentID: "gw_pay_1",
		Signature:        "deadbeef",
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindSignatureMismatch, errs.KindOf(err))

	// Neither record moved.
	gotOrder, err := orderDB.GetOrderByID(nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, gotOrder.PaymentStatus)

	gotPayment, err := svc.GetPayment(buyer, created.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCreated, gotPayment.Status)
}

func TestVerifyPaymentUnknownGatewayOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	sig := gateway.Sign("gw_missing", "gw_pay_1", webhookSecret)
	_, err := svc.VerifyPayment(models.VerifyPaymentRequest{
		GatewayOrderID:   "gw_missing",
		GatewayPaymentID: "gw_pay_1",
		Signature:        sig,
	})
	assert.ErrorIs(t, err, errs.ErrPaymentNotFound)
}

func TestGetPaymentOwnerOnly(t *testing.T) {
	svc, orderDB, _ := newTestService(t)
	order := seedOrder(t, orderDB, 300)

	created, err := svc.CreatePaymentOrder(buyer, models.CreatePaymentOrderRequest{
		Amount: 300, Currency: "INR", OrderID: order.ID, Method: models.MethodCard,
	})
	require.NoError(t, err)

	admin := auth.Actor{ID: "admin-1", Role: models.RoleAdmin, CompanyID: "co-1"}
	_, err = svc.GetPayment(admin, created.Payment.ID)
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestListMyPaymentsPaged(t *testing.T) {
	svc, orderDB, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		order := seedOrder(t, orderDB, 100)
		_, err := svc.CreatePaymentOrder(buyer, models.CreatePaymentOrderRequest{
			Amount: 100, Currency: "INR", OrderID: order.ID, Method: models.MethodCard,
		})
		require.NoError(t, err)
	}

	page, err := svc.ListMyPayments(buyer, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Payments, 2)
}
