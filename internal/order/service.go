package order

import (
	"context"
	"fmt"
	"time"

	"eventhub/internal/auth"
	"eventhub/internal/config"
	"eventhub/internal/errs"
	"eventhub/internal/logger"
	"eventhub/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type OrderStore interface {
	InsertOrder(idb bun.IDB, order *models.Order) error
	InsertLines(idb bun.IDB, lines []models.OrderLine) error
	GetOrderByID(idb bun.IDB, orderID string) (*models.Order, error)
	GetLinesByOrder(idb bun.IDB, orderID string) ([]models.OrderLine, error)
	UpdateOrderTotal(idb bun.IDB, orderID string, total float64) error
	UpdateOrderStatus(idb bun.IDB, orderID string, status models.OrderStatus) error
	FailIfPending(idb bun.IDB, orderID string) (bool, error)
	ReplaceLines(idb bun.IDB, orderID string, lines []models.OrderLine) error
	DeleteOrder(idb bun.IDB, orderID string) error
	ListUserOrders(userID string, status models.OrderStatus) ([]models.Order, error)
	ListAll(companyID string, page, pageSize int) ([]models.Order, int, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error
}

type InventoryStore interface {
	GetEventByID(id string) (*models.Event, error)
	GetTierByID(tierID string) (*models.TicketTier, error)
	GetTiersByEvent(eventID string) ([]models.TicketTier, error)
	ReserveTier(idb bun.IDB, tierID string, quantity int) error
	RestoreTier(idb bun.IDB, tierID string, quantity int) (int64, error)
}

type Publisher interface {
	PublishJSON(topic string, key string, payload interface{}) error
}

type Holder interface {
	Hold(ctx context.Context, orderID string) error
	Release(ctx context.Context, orderID string)
}

type Service struct {
	DB        OrderStore
	Inventory InventoryStore
	Producer  Publisher
	Tracker   Holder
	Topics    config.TopicConfig
	Logger    *logger.Logger
}

func NewService(db OrderStore, inv InventoryStore, producer Publisher, tracker Holder, topics config.TopicConfig, log *logger.Logger) *Service {
	return &Service{DB: db, Inventory: inv, Producer: producer, Tracker: tracker, Topics: topics, Logger: log}
}

func (s *Service) publish(topic, key string, payload interface{}) {
	if s.Producer == nil || topic == "" {
		return
	}
	if err := s.Producer.PublishJSON(topic, key, payload); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish to %s: %v", topic, err))
	}
}

type pricedLine struct {
	tier     *models.TicketTier
	quantity int
}

// priceLines validates every requested line against current tier data and
// returns the priced set. Nothing is decremented here, so a single bad
// line rejects the whole request without touching inventory.
func (s *Service) priceLines(eventID string, tickets []models.OrderLineRequest) ([]pricedLine, error) {
	if len(tickets) == 0 {
		return nil, errs.Validation("Tickets are required")
	}

	priced := make([]pricedLine, 0, len(tickets))
	for _, line := range tickets {
		if line.TicketID == "" {
			return nil, errs.Validation("Ticket ID is required for every line")
		}
		if line.Quantity <= 0 {
			return nil, errs.Validation("Quantity must be a positive integer")
		}
		if line.Amount < 0 {
			return nil, errs.Validation("Amount cannot be negative")
		}

		tier, err := s.Inventory.GetTierByID(line.TicketID)
		if err != nil {
			return nil, err
		}
		if tier.EventID != eventID {
			return nil, errs.Validationf("Ticket %s does not belong to this event", tier.Name)
		}
		if tier.Remaining < line.Quantity {
			return nil, errs.InsufficientInventory(tier.Name)
		}
		priced = append(priced, pricedLine{tier: tier, quantity: line.Quantity})
	}
	return priced, nil
}

// CreateOrder reserves inventory for every line and records a pending
// order. Decrements and inserts share one transaction, so a concurrent
// sellout on any line rolls back the entire order.
func (s *Service) CreateOrder(actor auth.Actor, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if req.EventID == "" {
		return nil, errs.Validation("Event ID is required")
	}
	if _, err := s.Inventory.GetEventByID(req.EventID); err != nil {
		return nil, err
	}

	priced, err := s.priceLines(req.EventID, req.Tickets)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		ID:            uuid.NewString(),
		EventID:       req.EventID,
		UserID:        actor.ID,
		CompanyID:     actor.CompanyID,
		PaymentStatus: models.OrderPending,
		CreatedAt:     time.Now(),
	}

	lines := make([]models.OrderLine, len(priced))
	for i, p := range priced {
		lines[i] = models.OrderLine{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			TicketID:   p.tier.ID,
			TicketName: p.tier.Name,
			Quantity:   p.quantity,
			Amount:     p.tier.Price,
		}
		order.TotalAmount += float64(p.quantity) * p.tier.Price
	}

	err = s.DB.RunInTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		for _, p := range priced {
			if err := s.Inventory.ReserveTier(tx, p.tier.ID, p.quantity); err != nil {
				if errs.KindOf(err) == errs.KindInsufficientInventory {
					return errs.InsufficientInventory(p.tier.Name)
				}
				return err
			}
		}
		if err := s.DB.InsertOrder(tx, &order); err != nil {
			return err
		}
		return s.DB.InsertLines(tx, lines)
	})
	if err != nil {
		return nil, err
	}

	if s.Tracker != nil {
		if err := s.Tracker.Hold(context.Background(), order.ID); err != nil {
			s.Logger.Warn("RESERVATION", fmt.Sprintf("Failed to hold order %s: %v", order.ID, err))
		}
	}

	s.logOrder("created", order)
	s.publish(s.Topics.OrderCreated, order.ID, models.OrderWithLines{Order: order, Lines: lines})

	remaining, err := s.Inventory.GetTiersByEvent(req.EventID)
	if err != nil {
		return nil, err
	}
	return &models.CreateOrderResponse{Order: order, Lines: lines, RemainingTickets: remaining}, nil
}

// UpdateOrder replaces an order's line set. Quantities are adjusted
// against inventory by the delta from the stored snapshot, and amounts
// are re-priced from current tier prices. Lines omitted from the request
// are dropped from the order without restoring their inventory.
func (s *Service) UpdateOrder(actor auth.Actor, orderID string, req models.UpdateOrderRequest) (*models.OrderWithLines, error) {
	order, err := s.DB.GetOrderByID(nil, orderID)
	if err != nil {
		return nil, err
	}
	if !auth.Can(actor, auth.OrderUpdate, auth.Resource{OwnerID: order.UserID, CompanyID: order.CompanyID}) {
		return nil, errs.Forbidden("You cannot modify this order")
	}

	oldLines, err := s.DB.GetLinesByOrder(nil, orderID)
	if err != nil {
		return nil, err
	}
	oldQty := make(map[string]int, len(oldLines))
	for _, l := range oldLines {
		oldQty[l.TicketID] = l.Quantity
	}

	priced, err := s.priceLinesForUpdate(order, oldQty, req.Tickets)
	if err != nil {
		return nil, err
	}

	if req.PaymentStatus != "" {
		if req.PaymentStatus != models.OrderFailed && req.PaymentStatus != models.OrderRefunded {
			return nil, errs.Validation("Payment status can only be set to Failed or Refunded")
		}
		if order.PaymentStatus == models.OrderCompleted {
			return nil, errs.Validation("Completed orders cannot change status")
		}
	}

	newLines := make([]models.OrderLine, len(priced))
	total := 0.0
	for i, p := range priced {
		newLines[i] = models.OrderLine{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			TicketID:   p.tier.ID,
			TicketName: p.tier.Name,
			Quantity:   p.quantity,
			Amount:     p.tier.Price,
		}
		total += float64(p.quantity) * p.tier.Price
	}

	err = s.DB.RunInTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		for _, p := range priced {
			delta := p.quantity - oldQty[p.tier.ID]
			switch {
			case delta > 0:
				if err := s.Inventory.ReserveTier(tx, p.tier.ID, delta); err != nil {
					if errs.KindOf(err) == errs.KindInsufficientInventory {
						return errs.InsufficientInventory(p.tier.Name)
					}
					return err
				}
			case delta < 0:
				if _, err := s.Inventory.RestoreTier(tx, p.tier.ID, -delta); err != nil {
					return err
				}
			}
		}
		if err := s.DB.ReplaceLines(tx, orderID, newLines); err != nil {
			return err
		}
		if err := s.DB.UpdateOrderTotal(tx, orderID, total); err != nil {
			return err
		}
		if req.PaymentStatus != "" {
			return s.DB.UpdateOrderStatus(tx, orderID, req.PaymentStatus)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.TotalAmount = total
	if req.PaymentStatus != "" {
		order.PaymentStatus = req.PaymentStatus
	}

	s.logOrder("updated", *order)
	s.publish(s.Topics.OrderUpdated, order.ID, models.OrderWithLines{Order: *order, Lines: newLines})
	return &models.OrderWithLines{Order: *order, Lines: newLines}, nil
}

// priceLinesForUpdate only accepts lines already present in the stored
// snapshot; updates adjust quantities, they never introduce new tiers.
func (s *Service) priceLinesForUpdate(order *models.Order, oldQty map[string]int, tickets []models.OrderLineRequest) ([]pricedLine, error) {
	if len(tickets) == 0 {
		return nil, errs.Validation("Tickets are required")
	}
	priced := make([]pricedLine, 0, len(tickets))
	seen := make(map[string]bool, len(tickets))
	for _, line := range tickets {
		if line.TicketID == "" {
			return nil, errs.Validation("Ticket ID is required for every line")
		}
		if line.Quantity <= 0 {
			return nil, errs.Validation("Quantity must be a positive integer")
		}
		// Duplicate lines would each be diffed against the same stored
		// quantity, reserving less than the order claims.
		if seen[line.TicketID] {
			return nil, errs.Validation("Each ticket can only appear once per update")
		}
		seen[line.TicketID] = true
		if _, ok := oldQty[line.TicketID]; !ok {
			return nil, errs.Validation("Updates can only change tickets already on the order")
		}
		tier, err := s.Inventory.GetTierByID(line.TicketID)
		if err != nil {
			return nil, err
		}
		if tier.EventID != order.EventID {
			return nil, errs.Validationf("Ticket %s does not belong to this event", tier.Name)
		}
		priced = append(priced, pricedLine{tier: tier, quantity: line.Quantity})
	}
	return priced, nil
}

// DeleteOrder cancels an order and returns its tickets to inventory.
// Restores are best effort; a failed restore is logged and does not
// block the cancellation.
func (s *Service) DeleteOrder(actor auth.Actor, orderID string) error {
	order, err := s.DB.GetOrderByID(nil, orderID)
	if err != nil {
		return err
	}
	if !auth.Can(actor, auth.OrderDelete, auth.Resource{OwnerID: order.UserID, CompanyID: order.CompanyID}) {
		return errs.Forbidden("Only the buyer can cancel this order")
	}
	if order.PaymentStatus != models.OrderPending {
		return errs.Validation("Only pending orders can be cancelled")
	}

	lines, err := s.DB.GetLinesByOrder(nil, orderID)
	if err != nil {
		return err
	}
	s.restoreLines(lines)

	if err := s.DB.DeleteOrder(nil, orderID); err != nil {
		return err
	}

	if s.Tracker != nil {
		s.Tracker.Release(context.Background(), orderID)
	}

	s.logOrder("cancelled", *order)
	s.publish(s.Topics.OrderCancelled, orderID, map[string]string{"order_id": orderID, "reason": "cancelled"})
	return nil
}

// ExpireOrder is invoked by the reservation tracker when a pending
// order's hold times out. The status flip is conditional on the order
// still being pending, and inventory is restored only after the flip
// lands, so a payment verified in the same window keeps its tickets.
func (s *Service) ExpireOrder(orderID string) {
	order, err := s.DB.GetOrderByID(nil, orderID)
	if err != nil {
		s.Logger.Warn("ORDER", fmt.Sprintf("Expired reservation for unknown order %s: %v", orderID, err))
		return
	}
	if order.PaymentStatus != models.OrderPending {
		return
	}

	failed, err := s.DB.FailIfPending(nil, orderID)
	if err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to fail expired order %s: %v", orderID, err))
		return
	}
	if !failed {
		return
	}

	lines, err := s.DB.GetLinesByOrder(nil, orderID)
	if err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to load lines for expired order %s: %v", orderID, err))
		return
	}
	s.restoreLines(lines)

	s.logOrder("expired", *order)
	s.publish(s.Topics.OrderCancelled, orderID, map[string]string{"order_id": orderID, "reason": "reservation_expired"})
}

func (s *Service) restoreLines(lines []models.OrderLine) {
	for _, line := range lines {
		rows, err := s.Inventory.RestoreTier(nil, line.TicketID, line.Quantity)
		if err != nil {
			s.Logger.Warn("ORDER", fmt.Sprintf("Failed to restore %d x %s: %v", line.Quantity, line.TicketName, err))
			continue
		}
		if rows == 0 {
			s.Logger.Warn("ORDER", fmt.Sprintf("Tier %s missing, skipped restoring %d tickets", line.TicketID, line.Quantity))
		}
	}
}

func (s *Service) GetOrder(actor auth.Actor, orderID string) (*models.OrderWithLines, error) {
	order, err := s.DB.GetOrderByID(nil, orderID)
	if err != nil {
		return nil, err
	}
	if !auth.Can(actor, auth.OrderRead, auth.Resource{OwnerID: order.UserID, CompanyID: order.CompanyID}) {
		return nil, errs.Forbidden("You cannot view this order")
	}
	lines, err := s.DB.GetLinesByOrder(nil, orderID)
	if err != nil {
		return nil, err
	}
	return &models.OrderWithLines{Order: *order, Lines: lines}, nil
}

func (s *Service) ListMyOrders(actor auth.Actor, status models.OrderStatus) ([]models.OrderWithLines, error) {
	orders, err := s.DB.ListUserOrders(actor.ID, status)
	if err != nil {
		return nil, err
	}
	return s.withLines(orders)
}

// ListAll pages through a company's orders, admin only.
func (s *Service) ListAll(actor auth.Actor, page, pageSize int) (*models.OrderListPage, error) {
	if !auth.Can(actor, auth.OrderListAll, auth.Resource{CompanyID: actor.CompanyID}) {
		return nil, errs.Forbidden("Only admins can list all orders")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orders, total, err := s.DB.ListAll(actor.CompanyID, page, pageSize)
	if err != nil {
		return nil, err
	}
	withLines, err := s.withLines(orders)
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &models.OrderListPage{
		Orders:      withLines,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalOrders: total,
	}, nil
}

func (s *Service) withLines(orders []models.Order) ([]models.OrderWithLines, error) {
	result := make([]models.OrderWithLines, len(orders))
	for i, o := range orders {
		lines, err := s.DB.GetLinesByOrder(nil, o.ID)
		if err != nil {
			return nil, err
		}
		result[i] = models.OrderWithLines{Order: o, Lines: lines}
	}
	return result, nil
}

func (s *Service) logOrder(action string, order models.Order) {
	s.Logger.LogOrder(action, order.ID,
		fmt.Sprintf("user %s, total %.2f", order.UserID, order.TotalAmount))
}
