package match

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trialmatch/platform/pkg/common/models"
	"gorm.io/gorm"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrDuplicateMatch = errors.New("match already exists for this trial and user")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// MatchModel carries a composite unique index on (trial_id, user_id) so
// two concurrent creations for the same pair cannot both land even when
// they both pass the existence pre-check.
type MatchModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TrialID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_matches_trial_user"`
	VolunteerID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_matches_trial_user;column:user_id"`
	Status      string    `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (MatchModel) TableName() string {
	return "matches"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&MatchModel{})
}

func (r *Repository) Create(ctx context.Context, trialID, volunteerID uuid.UUID) (models.Match, error) {
	var existing int64
	err := r.db.WithContext(ctx).Model(&MatchModel{}).
		Where("trial_id = ? AND user_id = ?", trialID, volunteerID).
		Count(&existing).Error
	if err != nil {
		return models.Match{}, err
	}
	if existing > 0 {
		return models.Match{}, ErrDuplicateMatch
	}

	record := MatchModel{
		ID:          uuid.New(),
		TrialID:     trialID,
		VolunteerID: volunteerID,
		Status:      string(models.MatchPending),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return models.Match{}, ErrDuplicateMatch
		}
		return models.Match{}, err
	}

	return mapMatch(record), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (models.Match, error) {
	var record MatchModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Match{}, ErrMatchNotFound
	}
	if err != nil {
		return models.Match{}, err
	}
	return mapMatch(record), nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus) error {
	result := r.db.WithContext(ctx).Model(&MatchModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (r *Repository) ListByTrial(ctx context.Context, trialID uuid.UUID) ([]models.Match, error) {
	var records []MatchModel
	err := r.db.WithContext(ctx).
		Where("trial_id = ?", trialID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return mapMatches(records), nil
}

func (r *Repository) ListByTrialAndStatus(ctx context.Context, trialID uuid.UUID, status models.MatchStatus) ([]models.Match, error) {
	var records []MatchModel
	err := r.db.WithContext(ctx).
		Where("trial_id = ? AND status = ?", trialID, string(status)).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return mapMatches(records), nil
}

func mapMatches(records []MatchModel) []models.Match {
	matches := make([]models.Match, len(records))
	for i, record := range records {
		matches[i] = mapMatch(record)
	}
	return matches
}

func mapMatch(record MatchModel) models.Match {
	return models.Match{
		ID:          record.ID,
		TrialID:     record.TrialID,
		VolunteerID: record.VolunteerID,
		Status:      models.MatchStatus(record.Status),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
