package trial

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
	ErrTrialNotFound = errors.New("trial not found")
	ErrTitleExists   = errors.New("trial title already exists")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type TrialModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index"`
	Title          string    `gorm:"uniqueIndex"`
	Description    string
	Eligibility    string
	StartDate      string
	EndDate        string
	Compensation   string
	Location       string
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time
}

func (TrialModel) TableName() string {
	return "trials"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&TrialModel{})
}

func (r *Repository) Create(ctx context.Context, t models.Trial) (models.Trial, error) {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&TrialModel{}).Where("title = ?", t.Title).Count(&existing).Error; err != nil {
		return models.Trial{}, err
	}
	if existing > 0 {
		return models.Trial{}, ErrTitleExists
	}

	record := TrialModel{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		Title:          t.Title,
		Description:    t.Description,
		Eligibility:    t.Eligibility,
		StartDate:      t.StartDate,
		EndDate:        t.EndDate,
		Compensation:   t.Compensation,
		Location:       t.Location,
		Metadata:       datatypes.JSONMap(t.Metadata),
		CreatedAt:      time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return models.Trial{}, ErrTitleExists
		}
		return models.Trial{}, err
	}

	return mapTrial(record), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (models.Trial, error) {
	var record TrialModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Trial{}, ErrTrialNotFound
	}
	if err != nil {
		return models.Trial{}, err
	}
	return mapTrial(record), nil
}

func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Trial, error) {
	var records []TrialModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	trials := make([]models.Trial, len(records))
	for i, record := range records {
		trials[i] = mapTrial(record)
	}
	return trials, nil
}

func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TrialModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func mapTrial(record TrialModel) models.Trial {
	return models.Trial{
		ID:             record.ID,
		OrganizationID: record.OrganizationID,
		Title:          record.Title,
		Description:    record.Description,
		Eligibility:    record.Eligibility,
		StartDate:      record.StartDate,
		EndDate:        record.EndDate,
		Compensation:   record.Compensation,
		Location:       record.Location,
		Metadata:       map[string]interface{}(record.Metadata),
		CreatedAt:      record.CreatedAt,
	}
}
