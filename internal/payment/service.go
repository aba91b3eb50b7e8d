package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"eventhub/internal/auth"
	"eventhub/internal/config"
	"eventhub/internal/errs"
	"eventhub/internal/logger"
	"eventhub/internal/models"
	"eventhub/internal/payment/gateway"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type PaymentStore interface {
	InsertPayment(payment *models.Payment) error
	GetPaymentByID(paymentID string) (*models.Payment, error)
	GetPaymentByGatewayOrder(idb bun.IDB, gatewayOrderID string) (*models.Payment, error)
	MarkPaid(idb bun.IDB, paymentID, gatewayPaymentID, methodDetails string) error
	MarkFailed(idb bun.IDB, paymentID string) error
	ListUserPayments(userID string, page, pageSize int) ([]models.Payment, int, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error
}

type OrderStore interface {
	GetOrderByID(idb bun.IDB, orderID string) (*models.Order, error)
	UpdateOrderStatus(idb bun.IDB, orderID string, status models.OrderStatus) error
}

type Gateway interface {
	CreateOrder(amount int64, currency, receipt string) (*models.GatewayOrder, error)
	FetchPayment(gatewayPaymentID string) (*models.GatewayPaymentDetails, error)
}

type Publisher interface {
	PublishJSON(topic string, key string, payload interface{}) error
}

type Releaser interface {
	Release(ctx context.Context, orderID string)
}

type Service struct {
	DB            PaymentStore
	Orders        OrderStore
	Gateway       Gateway
	Producer      Publisher
	Tracker       Releaser
	Topics        config.TopicConfig
	WebhookSecret string
	Logger        *logger.Logger
}

func NewService(db PaymentStore, orders OrderStore, gw Gateway, producer Publisher, tracker Releaser, topics config.TopicConfig, webhookSecret string, log *logger.Logger) *Service {
	return &Service{
		DB:            db,
		Orders:        orders,
		Gateway:       gw,
		Producer:      producer,
		Tracker:       tracker,
		Topics:        topics,
		WebhookSecret: webhookSecret,
		Logger:        log,
	}
}

func (s *Service) publish(topic, key string, payload interface{}) {
	if s.Producer == nil || topic == "" {
		return
	}
	if err := s.Producer.PublishJSON(topic, key, payload); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish to %s: %v", topic, err))
	}
}

// CreatePaymentOrder opens a gateway-side order for a pending platform
// order. The gateway works in minor units, so the amount is multiplied
// by 100 on the way out.
func (s *Service) CreatePaymentOrder(actor auth.Actor, req models.CreatePaymentOrderRequest) (*models.CreatePaymentOrderResponse, error) {
	if req.Amount <= 0 {
		return nil, errs.Validation("Amount must be greater than zero")
	}
	if !req.Method.Valid() {
		return nil, errs.Validation("Unsupported payment method")
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	order, err := s.Orders.GetOrderByID(nil, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID {
		return nil, errs.Forbidden("You cannot pay for this order")
	}
	if order.PaymentStatus != models.OrderPending {
		return nil, errs.New(errs.KindOrderMismatch, "Order is not pending payment")
	}
	if math.Abs(order.TotalAmount-req.Amount) > 0.009 {
		return nil, errs.New(errs.KindOrderMismatch, "Amount does not match order total")
	}

	gwOrder, err := s.Gateway.CreateOrder(int64(math.Round(req.Amount*100)), req.Currency, order.ID)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "Failed to create payment order", err)
	}

	payment := models.Payment{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		UserID:         actor.ID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         models.PaymentCreated,
		Method:         req.Method,
		CreatedAt:      time.Now(),
	}
	if err := s.DB.InsertPayment(&payment); err != nil {
		return nil, err
	}

	s.Logger.LogPayment("created", payment.ID,
		fmt.Sprintf("order %s, gateway order %s, %.2f %s", order.ID, gwOrder.ID, req.Amount, req.Currency))

	return &models.CreatePaymentOrderResponse{GatewayOrder: *gwOrder, Payment: payment}, nil
}

// VerifyPayment settles a gateway callback. The signature is checked
// before anything is read or written; a forged callback changes no
// state. On success the payment and its order flip in one transaction.
func (s *Service) VerifyPayment(req models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		return nil, errs.Validation("gateway_order_id, gateway_payment_id and signature are required")
	}

	if !gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, s.WebhookSecret) {
		s.Logger.Warn("PAYMENT", fmt.Sprintf("Signature mismatch for gateway order %s", req.GatewayOrderID))
		return nil, errs.New(errs.KindSignatureMismatch, "Invalid payment signature")
	}

	methodDetails := s.fetchMethodDetails(req.GatewayPaymentID)

	var payment *models.Payment
	var order *models.Order
	err := s.DB.RunInTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		var err error
		payment, err = s.DB.GetPaymentByGatewayOrder(tx, req.GatewayOrderID)
		if err != nil {
			return err
		}
		order, err = s.Orders.GetOrderByID(tx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := s.DB.MarkPaid(tx, payment.ID, req.GatewayPaymentID, methodDetails); err != nil {
			return err
		}
		return s.Orders.UpdateOrderStatus(tx, order.ID, models.OrderCompleted)
	})
	if err != nil {
		return nil, err
	}

	payment.Status = models.PaymentPaid
	payment.GatewayPaymentID = req.GatewayPaymentID
	payment.MethodDetails = methodDetails
	order.PaymentStatus = models.OrderCompleted

	if s.Tracker != nil {
		s.Tracker.Release(context.Background(), order.ID)
	}

	s.Logger.LogPayment("verified", payment.ID, fmt.Sprintf("order %s completed", order.ID))
	s.publish(s.Topics.PaymentCompleted, payment.ID, models.VerifyPaymentResponse{Payment: *payment, Order: *order})

	return &models.VerifyPaymentResponse{Payment: *payment, Order: *order}, nil
}

// fetchMethodDetails is best effort; a gateway outage never blocks
// settlement of an already-signed callback.
func (s *Service) fetchMethodDetails(gatewayPaymentID string) string {
	if s.Gateway == nil {
		return ""
	}
	details, err := s.Gateway.FetchPayment(gatewayPaymentID)
	if err != nil {
		s.Logger.Warn("PAYMENT", fmt.Sprintf("Failed to fetch method details for %s: %v", gatewayPaymentID, err))
		return ""
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (s *Service) GetPayment(actor auth.Actor, paymentID string) (*models.Payment, error) {
	payment, err := s.DB.GetPaymentByID(paymentID)
	if err != nil {
		return nil, err
	}
	if !auth.Can(actor, auth.PaymentRead, auth.Resource{OwnerID: payment.UserID}) {
		return nil, errs.Forbidden("You cannot view this payment")
	}
	return payment, nil
}

type PaymentListPage struct {
	Payments    []models.Payment `json:"payments"`
	CurrentPage int              `json:"current_page"`
	TotalPages  int              `json:"total_pages"`
	Total       int              `json:"total"`
}

func (s *Service) ListMyPayments(actor auth.Actor, page, pageSize int) (*PaymentListPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	payments, total, err := s.DB.ListUserPayments(actor.ID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &PaymentListPage{
		Payments:    payments,
		CurrentPage: page,
		TotalPages:  (total + pageSize - 1) / pageSize,
		Total:       total,
	}, nil
}
