package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hydrowangi-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	CreatePlant(ctx context.Context, p *model.Plant) error
	ListPlants(ctx context.Context) ([]model.Plant, error)
	GetPlant(ctx context.Context, id int64) (*model.Plant, error)
	UpdatePlant(ctx context.Context, p *model.Plant) error
	DeletePlantByName(ctx context.Context, name string) (*model.Plant, error)

	CreatePlanted(ctx context.Context, p *model.Planted) error
	ListPlanted(ctx context.Context) ([]model.Planted, error)
	GetPlanted(ctx context.Context, id int64) (*model.Planted, error)
	GetPlantedBySlot(ctx context.Context, slot int) (*model.Planted, error)
	ActivePlanted(ctx context.Context) (*model.Planted, error)
	UpdateHarvestTime(ctx context.Context, id int64, harvestAt time.Time) (*model.Planted, error)
	DeletePlanted(ctx context.Context, id int64) error

	GetControl(ctx context.Context, deviceID string) (*model.Control, error)
	SetActuator(ctx context.Context, deviceID string, field ControlField, on bool, at time.Time) error

	AppendTelemetry(ctx context.Context, t *model.Telemetry) error
	LatestTelemetry(ctx context.Context) (*model.Telemetry, error)
	ListTelemetry(ctx context.Context, offset, limit int) ([]model.Telemetry, int64, error)
	AllTelemetry(ctx context.Context) ([]model.Telemetry, error)
	DeleteAllTelemetry(ctx context.Context) (int64, error)

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// notFound maps gorm's sentinel onto ours and wraps everything else.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}

// --- Plant catalog ---

func (s *gormStore) CreatePlant(ctx context.Context, p *model.Plant) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create plant %q: %w", p.Name, err)
	}
	return nil
}

func (s *gormStore) ListPlants(ctx context.Context) ([]model.Plant, error) {
	var plants []model.Plant
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&plants).Error; err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	return plants, nil
}

func (s *gormStore) GetPlant(ctx context.Context, id int64) (*model.Plant, error) {
	var p model.Plant
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "plant")
	}
	return &p, nil
}

func (s *gormStore) UpdatePlant(ctx context.Context, p *model.Plant) error {
	res := s.db.WithContext(ctx).Model(&model.Plant{ID: p.ID}).
		Select("name", "description", "tds", "harvest_days", "image").
		Updates(p)
	if res.Error != nil {
		return fmt.Errorf("failed to update plant %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlantByName removes the first catalog entry with the given name.
func (s *gormStore) DeletePlantByName(ctx context.Context, name string) (*model.Plant, error) {
	var deleted model.Plant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("name = ?", name).Order("id").First(&deleted).Error; err != nil {
			return notFound(err, "plant")
		}
		if err := tx.Delete(&model.Plant{}, deleted.ID).Error; err != nil {
			return fmt.Errorf("failed to delete plant %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// --- Planted cycles ---

// CreatePlanted stores a new cycle if its slot is valid and free.
func (s *gormStore) CreatePlanted(ctx context.Context, p *model.Planted) error {
	if !model.ValidSlot(p.Slot) {
		return ErrInvalidSlot
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Planted{}).Where("slot = ?", p.Slot).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check slot %d: %w", p.Slot, err)
		}
		if count > 0 {
			return ErrSlotOccupied
		}
		if err := tx.Create(p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotOccupied
			}
			return fmt.Errorf("failed to create planted cycle in slot %d: %w", p.Slot, err)
		}
		return nil
	})
}

func (s *gormStore) ListPlanted(ctx context.Context) ([]model.Planted, error) {
	var cycles []model.Planted
	if err := s.db.WithContext(ctx).Order("slot ASC").Find(&cycles).Error; err != nil {
		return nil, fmt.Errorf("failed to list planted cycles: %w", err)
	}
	return cycles, nil
}

func (s *gormStore) GetPlanted(ctx context.Context, id int64) (*model.Planted, error) {
	var p model.Planted
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "planted cycle")
	}
	return &p, nil
}

func (s *gormStore) GetPlantedBySlot(ctx context.Context, slot int) (*model.Planted, error) {
	if !model.ValidSlot(slot) {
		return nil, ErrInvalidSlot
	}
	var p model.Planted
	if err := s.db.WithContext(ctx).Where("slot = ?", slot).Take(&p).Error; err != nil {
		return nil, notFound(err, "planted cycle")
	}
	return &p, nil
}

// ActivePlanted returns the cycle in the lowest occupied slot. Its target
// TDS drives the danger band.
func (s *gormStore) ActivePlanted(ctx context.Context) (*model.Planted, error) {
	var p model.Planted
	if err := s.db.WithContext(ctx).Order("slot ASC").Take(&p).Error; err != nil {
		return nil, notFound(err, "active planted cycle")
	}
	return &p, nil
}

func (s *gormStore) UpdateHarvestTime(ctx context.Context, id int64, harvestAt time.Time) (*model.Planted, error) {
	res := s.db.WithContext(ctx).Model(&model.Planted{}).Where("id = ?", id).Update("harvest_at", harvestAt)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update harvest time for cycle %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetPlanted(ctx, id)
}

func (s *gormStore) DeletePlanted(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Planted{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete planted cycle %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Control state ---

func (s *gormStore) GetControl(ctx context.Context, deviceID string) (*model.Control, error) {
	var c model.Control
	if err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Take(&c).Error; err != nil {
		return nil, notFound(err, "control state")
	}
	return &c, nil
}

// SetActuator upserts the device's Control record, touching only the given
// field and the timestamp. Concurrent writers race; the last one wins.
func (s *gormStore) SetActuator(ctx context.Context, deviceID string, field ControlField, on bool, at time.Time) error {
	ctrl := model.Control{DeviceID: deviceID, UpdatedAt: at}
	switch field {
	case FieldPesticide:
		ctrl.PesticideOn = on
	case FieldNutrition:
		ctrl.NutritionOn = on
	default:
		return fmt.Errorf("unknown control field %q", field)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{string(field), "updated_at"}),
	}).Create(&ctrl).Error
	if err != nil {
		return fmt.Errorf("failed to set %s=%t for device %s: %w", field, on, deviceID, err)
	}
	return nil
}

// --- Telemetry ---

func (s *gormStore) AppendTelemetry(ctx context.Context, t *model.Telemetry) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to append telemetry: %w", err)
	}
	return nil
}

func (s *gormStore) LatestTelemetry(ctx context.Context) (*model.Telemetry, error) {
	var t model.Telemetry
	if err := s.db.WithContext(ctx).Order("ts DESC").Take(&t).Error; err != nil {
		return nil, notFound(err, "latest telemetry")
	}
	return &t, nil
}

// ListTelemetry returns one page of readings, newest first, and the total row count.
func (s *gormStore) ListTelemetry(ctx context.Context, offset, limit int) ([]model.Telemetry, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Telemetry{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count telemetry: %w", err)
	}

	var rows []model.Telemetry
	if err := s.db.WithContext(ctx).Order("ts DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list telemetry: %w", err)
	}
	return rows, total, nil
}

func (s *gormStore) AllTelemetry(ctx context.Context) ([]model.Telemetry, error) {
	var rows []model.Telemetry
	if err := s.db.WithContext(ctx).Order("ts DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load telemetry: %w", err)
	}
	return rows, nil
}

// DeleteAllTelemetry clears the reading history after a growing cycle.
func (s *gormStore) DeleteAllTelemetry(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Telemetry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete telemetry: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// --- Push subscriptions ---

func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Take(&sub).Error; err != nil {
		return nil, notFound(err, "subscription")
	}
	return &sub, nil
}

func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
