package event

import (
	"fmt"
	"time"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	"eventhub/internal/logger"
	"eventhub/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DBLayer interface {
	CreateEvent(event models.Event) error
	GetEventByID(id string) (*models.Event, error)
	GetEventByName(name string) (*models.Event, error)
	UpdateEvent(event models.Event) error
	ListEventsByCreator(userID string) ([]models.Event, error)
	ListEventsByCompany(companyID string) ([]models.Event, error)
	AddTiers(tiers []models.TicketTier) error
	GetTiersByEvent(eventID string) ([]models.TicketTier, error)
	GetTierByName(eventID, name string) (*models.TicketTier, error)
	ReserveTier(idb bun.IDB, tierID string, quantity int) error
	SumTierQuantities(eventID string) (int, error)
}

type Service struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewService(db DBLayer, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// CreateEvent registers the basic event record. Names are globally unique.
func (s *Service) CreateEvent(actor auth.Actor, req models.CreateEventRequest) (*models.Event, error) {
	if req.Name == "" {
		return nil, errs.Validation("Event name is required")
	}
	if req.Visibility != models.VisibilityPublic && req.Visibility != models.VisibilityPrivate {
		return nil, errs.Validation("Visibility must be public or private")
	}

	if existing, err := s.DB.GetEventByName(req.Name); err == nil && existing != nil {
		return nil, errs.Validation("Event with this name already exists")
	}

	event := models.Event{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
		CreatedBy:   actor.ID,
		CompanyID:   actor.CompanyID,
		CreatedAt:   time.Now(),
	}

	if err := s.DB.CreateEvent(event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.Logger.Info("EVENT", fmt.Sprintf("Event %s created by %s", event.ID, actor.ID))
	return &event, nil
}

// AddEventDetails fills in capacity, schedule and location.
func (s *Service) AddEventDetails(req models.EventDetailsRequest) (*models.Event, error) {
	event, err := s.DB.GetEventByID(req.EventID)
	if err != nil {
		return nil, err
	}

	if req.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.DateTime)
		if err != nil {
			return nil, errs.Validation("Invalid date format. Use ISO 8601 (YYYY-MM-DDTHH:mm:ssZ)")
		}
		event.DateTime = parsed
	}

	event.Capacity = req.Capacity
	event.Location = req.Location

	if err := s.DB.UpdateEvent(*event); err != nil {
		return nil, fmt.Errorf("failed to update event details: %w", err)
	}
	return event, nil
}

// AddTiers appends ticket tiers. The capacity ceiling is enforced only
// here, at tier-add time; it is not re-validated afterwards.
func (s *Service) AddTiers(req models.AddTiersRequest) (*models.EventWithTiers, error) {
	event, err := s.DB.GetEventByID(req.EventID)
	if err != nil {
		return nil, err
	}
	if event.Capacity == 0 {
		return nil, errs.Validation("Event quantity has not been set")
	}
	if len(req.Tiers) == 0 {
		return nil, errs.Validation("Tickets are required")
	}

	existingTotal, err := s.DB.SumTierQuantities(req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to total existing tiers: %w", err)
	}

	newTotal := 0
	for _, t := range req.Tiers {
		if t.Name == "" {
			return nil, errs.Validation("Ticket name is required")
		}
		if t.Quantity <= 0 {
			return nil, errs.Validationf("Quantity must be a positive number for ticket %s", t.Name)
		}
		if t.Price < 0 {
			return nil, errs.Validationf("Price must be a non-negative number for ticket %s", t.Name)
		}
		newTotal += t.Quantity
	}

	if existingTotal+newTotal > event.Capacity {
		return nil, errs.Validationf(
			"Total ticket quantity (%d) exceeds event capacity (%d)",
			existingTotal+newTotal, event.Capacity)
	}

	tiers := make([]models.TicketTier, len(req.Tiers))
	for i, t := range req.Tiers {
		tiers[i] = models.TicketTier{
			ID:          uuid.NewString(),
			EventID:     req.EventID,
			Name:        t.Name,
			Description: t.Description,
			Price:       t.Price,
			Remaining:   t.Quantity,
		}
	}

	if err := s.DB.AddTiers(tiers); err != nil {
		return nil, fmt.Errorf("failed to add tiers: %w", err)
	}

	allTiers, err := s.DB.GetTiersByEvent(req.EventID)
	if err != nil {
		return nil, err
	}
	return &models.EventWithTiers{Event: *event, Tiers: allTiers}, nil
}

// BuyTicket is the legacy direct-purchase path: it locates a tier by name
// and decrements it, bypassing the order pipeline.
func (s *Service) BuyTicket(req models.BuyTicketRequest) (*models.TicketTier, error) {
	if req.Quantity <= 0 {
		return nil, errs.Validation("Quantity must be a positive integer")
	}

	if _, err := s.DB.GetEventByID(req.EventID); err != nil {
		return nil, err
	}

	tier, err := s.DB.GetTierByName(req.EventID, req.TicketName)
	if err != nil {
		return nil, err
	}

	if err := s.DB.ReserveTier(nil, tier.ID, req.Quantity); err != nil {
		if errs.KindOf(err) == errs.KindInsufficientInventory {
			return nil, errs.InsufficientInventory(tier.Name)
		}
		return nil, err
	}

	tier.Remaining -= req.Quantity
	s.Logger.Info("EVENT", fmt.Sprintf("Sold %d x %s on event %s", req.Quantity, tier.Name, req.EventID))
	return tier, nil
}

func (s *Service) GetEvent(eventID string) (*models.EventWithTiers, error) {
	event, err := s.DB.GetEventByID(eventID)
	if err != nil {
		return nil, err
	}
	tiers, err := s.DB.GetTiersByEvent(eventID)
	if err != nil {
		return nil, err
	}
	return &models.EventWithTiers{Event: *event, Tiers: tiers}, nil
}

// ListCompanyEvents returns every company event for admins and managers,
// and only a user's own events otherwise.
func (s *Service) ListCompanyEvents(actor auth.Actor) ([]models.Event, error) {
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleManager {
		return s.DB.ListEventsByCompany(actor.CompanyID)
	}
	return s.DB.ListEventsByCreator(actor.ID)
}
