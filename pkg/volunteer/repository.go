package volunteer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trialmatch/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrVolunteerNotFound = errors.New("volunteer not found")
	ErrEmailExists       = errors.New("email already registered")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type VolunteerModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string
	Email     string `gorm:"uniqueIndex"`
	Report    string `gorm:"type:text"`
	Intake    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (VolunteerModel) TableName() string {
	return "users"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&VolunteerModel{})
}

type CreateInput struct {
	Name   string
	Email  string
	Report string
	Intake map[string]interface{}
}

func (r *Repository) Create(ctx context.Context, input CreateInput) (models.Volunteer, error) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(input.Email))

	var existing int64
	if err := r.db.WithContext(ctx).Model(&VolunteerModel{}).Where("email = ?", normalizedEmail).Count(&existing).Error; err != nil {
		return models.Volunteer{}, err
	}
	if existing > 0 {
		return models.Volunteer{}, ErrEmailExists
	}

	record := VolunteerModel{
		ID:        uuid.New(),
		Name:      input.Name,
		Email:     normalizedEmail,
		Report:    input.Report,
		Intake:    datatypes.JSONMap(input.Intake),
		CreatedAt: time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return models.Volunteer{}, ErrEmailExists
		}
		return models.Volunteer{}, err
	}

	return mapVolunteer(record), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (models.Volunteer, error) {
	var record VolunteerModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Volunteer{}, ErrVolunteerNotFound
	}
	if err != nil {
		return models.Volunteer{}, err
	}
	return mapVolunteer(record), nil
}

func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&VolunteerModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func mapVolunteer(record VolunteerModel) models.Volunteer {
	return models.Volunteer{
		ID:        record.ID,
		Name:      record.Name,
		Email:     record.Email,
		Report:    record.Report,
		Intake:    map[string]interface{}(record.Intake),
		CreatedAt: record.CreatedAt,
	}
}
