package db

import (
	"context"
	"database/sql"
	"errors"

	"eventhub/internal/errs"
	"eventhub/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func NewDB(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

func (d *DB) CreateEvent(event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(context.Background())
	return err
}

func (d *DB) GetEventByID(id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (d *DB) GetEventByName(name string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("name = ?", name).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (d *DB) UpdateEvent(event models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("capacity", "date_time", "location").
		Where("id = ?", event.ID).
		Exec(context.Background())
	return err
}

// ListEventsByCreator returns the events a single user owns.
func (d *DB) ListEventsByCreator(userID string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListEventsByCompany returns every event of a company, for admin/manager
// views.
func (d *DB) ListEventsByCompany(companyID string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ---------------- TICKET TIERS ----------------

func (d *DB) AddTiers(tiers []models.TicketTier) error {
	if len(tiers) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&tiers).Exec(context.Background())
	return err
}

func (d *DB) GetTiersByEvent(eventID string) ([]models.TicketTier, error) {
	var tiers []models.TicketTier
	err := d.Bun.NewSelect().
		Model(&tiers).
		Where("event_id = ?", eventID).
		Order("name").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (d *DB) GetTierByID(tierID string) (*models.TicketTier, error) {
	var tier models.TicketTier
	err := d.Bun.NewSelect().
		Model(&tier).
		Where("id = ?", tierID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &tier, nil
}

func (d *DB) GetTierByName(eventID, name string) (*models.TicketTier, error) {
	var tier models.TicketTier
	err := d.Bun.NewSelect().
		Model(&tier).
		Where("event_id = ? AND name = ?", eventID, name).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &tier, nil
}

// ReserveTier decrements a tier's remaining count in a single conditional
// update so two concurrent purchases can never oversell: the decrement only
// lands when remaining >= quantity at write time.
func (d *DB) ReserveTier(idb bun.IDB, tierID string, quantity int) error {
	if idb == nil {
		idb = d.Bun
	}
	res, err := idb.NewUpdate().
		Model((*models.TicketTier)(nil)).
		Set("remaining = remaining - ?", quantity).
		Where("id = ? AND remaining >= ?", tierID, quantity).
		Exec(context.Background())
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.New(errs.KindInsufficientInventory, "Not enough tickets available")
	}
	return nil
}

// RestoreTier returns cancelled quantity to a tier. Returns the number of
// rows touched so callers can treat a vanished tier as best-effort.
func (d *DB) RestoreTier(idb bun.IDB, tierID string, quantity int) (int64, error) {
	if idb == nil {
		idb = d.Bun
	}
	res, err := idb.NewUpdate().
		Model((*models.TicketTier)(nil)).
		Set("remaining = remaining + ?", quantity).
		Where("id = ?", tierID).
		Exec(context.Background())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SumTierQuantities totals the remaining quantities of all tiers on an
// event, used by the capacity check at tier-add time.
func (d *DB) SumTierQuantities(eventID string) (int, error) {
	var total sql.NullInt64
	err := d.Bun.NewSelect().
		ColumnExpr("SUM(remaining)").
		Model((*models.TicketTier)(nil)).
		Where("event_id = ?", eventID).
		Scan(context.Background(), &total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
