package promo

import (
	"fmt"
	"strings"
	"time"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	"eventhub/internal/logger"
	"eventhub/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type PromoStore interface {
	CreatePromo(promo models.PromoCode) error
	GetPromoByID(id string) (*models.PromoCode, error)
	GetActivePromo(code, companyID string) (*models.PromoCode, error)
	PromoCodeExists(code, companyID string) (bool, error)
	ListPromos(companyID string) ([]models.PromoCode, error)
	ListActivePromos(companyID string) ([]models.PromoCode, error)
	UpdatePromo(promo models.PromoCode) error
	SetPromoActive(id string, active bool) error
	DeletePromo(id string) error
	DeactivateExpired(now time.Time) (int64, error)
	HasUsed(userID, promoID string) (bool, error)
	RecordUsage(usage models.PromoCodeUsage) error
}

type OrderStore interface {
	GetOrderByID(idb bun.IDB, orderID string) (*models.Order, error)
	UpdateOrderTotal(idb bun.IDB, orderID string, total float64) error
}

type Service struct {
	DB     PromoStore
	Orders OrderStore
	Logger *logger.Logger
}

func NewService(db PromoStore, orders OrderStore, log *logger.Logger) *Service {
	return &Service{DB: db, Orders: orders, Logger: log}
}

// discountFor applies a promo to an amount. The result never goes below
// zero; a flat discount larger than the amount clamps to free.
func discountFor(promo *models.PromoCode, amount float64) (discount, final float64) {
	switch promo.DiscountType {
	case models.DiscountPercent:
		discount = amount * promo.DiscountAmount / 100
	default:
		discount = promo.DiscountAmount
	}
	final = amount - discount
	if final < 0 {
		discount = amount
		final = 0
	}
	return discount, final
}

// expireIfDue lazily deactivates a code whose expiry has passed, so a
// stale code is rejected even between sweeps.
func (s *Service) expireIfDue(promo *models.PromoCode) error {
	if promo.ExpiresAt.IsZero() || promo.ExpiresAt.After(time.Now()) {
		return nil
	}
	if err := s.DB.SetPromoActive(promo.ID, false); err != nil {
		s.Logger.Warn("PROMO", fmt.Sprintf("Failed to deactivate expired code %s: %v", promo.Code, err))
	}
	return errs.ErrPromoExpired
}

// Apply redeems a promo code against a pending order. The stored amount
// guard requires the client's original_amount to match the order total,
// which makes a second application fail unless it is recomputed from the
// already-discounted total.
func (s *Service) Apply(actor auth.Actor, req models.ApplyPromoRequest) (*models.ApplyPromoResult, error) {
	if req.Code == "" {
		return nil, errs.Validation("Promo code is required")
	}
	if req.OrderID == "" {
		return nil, errs.Validation("Order ID is required")
	}

	promo, err := s.DB.GetActivePromo(req.Code, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfDue(promo); err != nil {
		return nil, err
	}

	used, err := s.DB.HasUsed(actor.ID, promo.ID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, errs.ErrAlreadyUsed
	}

	order, err := s.Orders.GetOrderByID(nil, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID {
		return nil, errs.Forbidden("You cannot apply a promo to this order")
	}
	if order.PaymentStatus != models.OrderPending {
		return nil, errs.New(errs.KindOrderMismatch, "Promo codes can only be applied to pending orders")
	}
	if order.TotalAmount != req.OriginalAmount {
		return nil, errs.New(errs.KindOrderMismatch, "Order amount does not match")
	}

	discount, final := discountFor(promo, req.OriginalAmount)

	if err := s.Orders.UpdateOrderTotal(nil, order.ID, final); err != nil {
		return nil, err
	}

	usage := models.PromoCodeUsage{
		ID:          uuid.NewString(),
		UserID:      actor.ID,
		PromoCodeID: promo.ID,
		UsedAt:      time.Now(),
	}
	if err := s.DB.RecordUsage(usage); err != nil {
		s.Logger.Warn("PROMO", fmt.Sprintf("Failed to record usage of %s by %s: %v", promo.Code, actor.ID, err))
	}

	s.Logger.LogPromo("applied", promo.Code,
		fmt.Sprintf("order %s: %.2f -> %.2f", order.ID, req.OriginalAmount, final))

	return &models.ApplyPromoResult{
		DiscountAmount: discount,
		DiscountType:   promo.DiscountType,
		FinalAmount:    final,
		Description:    promo.Description,
	}, nil
}

// Preview computes what a code would do to an order without changing
// anything. No code at all just echoes the current total.
func (s *Service) Preview(actor auth.Actor, req models.PromoPreviewRequest) (*models.PromoPreviewResult, error) {
	if req.OrderID == "" {
		return nil, errs.Validation("Order ID is required")
	}

	order, err := s.Orders.GetOrderByID(nil, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !auth.Can(actor, auth.OrderRead, auth.Resource{OwnerID: order.UserID, CompanyID: order.CompanyID}) {
		return nil, errs.Forbidden("You cannot view this order")
	}

	result := &models.PromoPreviewResult{
		TotalAmount: order.TotalAmount,
		FinalAmount: order.TotalAmount,
	}
	if req.PromoCode == "" {
		return result, nil
	}

	promo, err := s.DB.GetActivePromo(req.PromoCode, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfDue(promo); err != nil {
		return nil, err
	}
	used, err := s.DB.HasUsed(actor.ID, promo.ID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, errs.ErrAlreadyUsed
	}

	result.Discount, result.FinalAmount = discountFor(promo, order.TotalAmount)
	return result, nil
}

func (s *Service) Create(actor auth.Actor, req models.CreatePromoRequest) (*models.PromoCode, error) {
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return nil, errs.Validation("Promo code is required")
	}
	if req.DiscountType != models.DiscountFlat && req.DiscountType != models.DiscountPercent {
		return nil, errs.Validation("Discount type must be flat or percent")
	}
	if req.DiscountAmount <= 0 {
		return nil, errs.Validation("Discount amount must be greater than zero")
	}
	if req.DiscountType == models.DiscountPercent && req.DiscountAmount > 100 {
		return nil, errs.Validation("Percent discount cannot exceed 100")
	}

	exists, err := s.DB.PromoCodeExists(req.Code, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.Validation("Promo code already exists")
	}

	promo := models.PromoCode{
		ID:             uuid.NewString(),
		Code:           req.Code,
		DiscountAmount: req.DiscountAmount,
		DiscountType:   req.DiscountType,
		Description:    req.Description,
		CreatedBy:      actor.ID,
		CompanyID:      actor.CompanyID,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}
	if req.ExpiresAt != "" {
		expires, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return nil, errs.Validation("Invalid expiry date. Use ISO 8601 (YYYY-MM-DDTHH:mm:ssZ)")
		}
		promo.ExpiresAt = expires
		if expires.Before(time.Now()) {
			promo.IsActive = false
		}
	}

	if err := s.DB.CreatePromo(promo); err != nil {
		return nil, err
	}
	s.Logger.LogPromo("created", promo.Code, fmt.Sprintf("by %s", actor.ID))
	return &promo, nil
}

func (s *Service) Update(actor auth.Actor, id string, req models.UpdatePromoRequest) (*models.PromoCode, error) {
	promo, err := s.getCompanyPromo(actor, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if code == "" {
			return nil, errs.Validation("Promo code cannot be empty")
		}
		if !strings.EqualFold(code, promo.Code) {
			exists, err := s.DB.PromoCodeExists(code, actor.CompanyID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, errs.Validation("Promo code already exists")
			}
		}
		promo.Code = code
	}
	if req.DiscountType != nil {
		if *req.DiscountType != models.DiscountFlat && *req.DiscountType != models.DiscountPercent {
			return nil, errs.Validation("Discount type must be flat or percent")
		}
		promo.DiscountType = *req.DiscountType
	}
	if req.DiscountAmount != nil {
		if *req.DiscountAmount <= 0 {
			return nil, errs.Validation("Discount amount must be greater than zero")
		}
		promo.DiscountAmount = *req.DiscountAmount
	}
	if promo.DiscountType == models.DiscountPercent && promo.DiscountAmount > 100 {
		return nil, errs.Validation("Percent discount cannot exceed 100")
	}
	if req.Description != nil {
		promo.Description = *req.Description
	}
	if req.ExpiresAt != nil {
		if *req.ExpiresAt == "" {
			promo.ExpiresAt = time.Time{}
		} else {
			expires, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				return nil, errs.Validation("Invalid expiry date. Use ISO 8601 (YYYY-MM-DDTHH:mm:ssZ)")
			}
			promo.ExpiresAt = expires
		}
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if err := s.DB.UpdatePromo(*promo); err != nil {
		return nil, err
	}
	s.Logger.LogPromo("updated", promo.Code, fmt.Sprintf("by %s", actor.ID))
	return promo, nil
}

func (s *Service) SetActive(actor auth.Actor, id string, active bool) (*models.PromoCode, error) {
	promo, err := s.getCompanyPromo(actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.SetPromoActive(id, active); err != nil {
		return nil, err
	}
	promo.IsActive = active
	return promo, nil
}

func (s *Service) Delete(actor auth.Actor, id string) error {
	if _, err := s.getCompanyPromo(actor, id); err != nil {
		return err
	}
	return s.DB.DeletePromo(id)
}

func (s *Service) Get(actor auth.Actor, id string) (*models.PromoCode, error) {
	return s.getCompanyPromo(actor, id)
}

// List sweeps expired codes first so the listing never shows a code as
// active past its expiry.
func (s *Service) List(actor auth.Actor) ([]models.PromoCode, error) {
	s.SweepExpired()
	return s.DB.ListPromos(actor.CompanyID)
}

func (s *Service) ListActive(actor auth.Actor) ([]models.PromoCode, error) {
	s.SweepExpired()
	return s.DB.ListActivePromos(actor.CompanyID)
}

// SweepExpired deactivates every lapsed code. Safe to run repeatedly;
// an already-inactive code is never matched again.
func (s *Service) SweepExpired() {
	flipped, err := s.DB.DeactivateExpired(time.Now())
	if err != nil {
		s.Logger.Error("PROMO", fmt.Sprintf("Expiry sweep failed: %v", err))
		return
	}
	if flipped > 0 {
		s.Logger.Info("PROMO", fmt.Sprintf("Expiry sweep deactivated %d code(s)", flipped))
	}
}

func (s *Service) getCompanyPromo(actor auth.Actor, id string) (*models.PromoCode, error) {
	promo, err := s.DB.GetPromoByID(id)
	if err != nil {
		return nil, err
	}
	if promo.CompanyID != actor.CompanyID {
		return nil, errs.ErrPromoNotFound
	}
	return promo, nil
}
