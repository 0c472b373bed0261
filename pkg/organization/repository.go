package organization

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
	ErrOrgNotFound = errors.New("organization not found")
	ErrEmailExists = errors.New("email already registered")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type OrganizationModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	Metadata     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (OrganizationModel) TableName() string {
	return "organizations"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&OrganizationModel{})
}

type CreateInput struct {
	Name         string
	Email        string
	PasswordHash string
	Metadata     map[string]interface{}
}

func (r *Repository) Create(ctx context.Context, input CreateInput) (models.Organization, error) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(input.Email))

	var existing int64
	if err := r.db.WithContext(ctx).Model(&OrganizationModel{}).Where("email = ?", normalizedEmail).Count(&existing).Error; err != nil {
		return models.Organization{}, err
	}
	if existing > 0 {
		return models.Organization{}, ErrEmailExists
	}

	org := OrganizationModel{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        normalizedEmail,
		PasswordHash: input.PasswordHash,
		Metadata:     datatypes.JSONMap(input.Metadata),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&org).Error; err != nil {
		// The unique index is the real guard; the pre-check above only
		// gives the friendlier error on the common path.
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return models.Organization{}, ErrEmailExists
		}
		return models.Organization{}, err
	}

	return mapOrganization(org), nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (models.Organization, error) {
	var org OrganizationModel
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Organization{}, ErrOrgNotFound
	}
	if err != nil {
		return models.Organization{}, err
	}
	return mapOrganization(org), nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (models.Organization, error) {
	var org OrganizationModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Organization{}, ErrOrgNotFound
	}
	if err != nil {
		return models.Organization{}, err
	}
	return mapOrganization(org), nil
}

func (r *Repository) GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error) {
	var org OrganizationModel
	err := r.db.WithContext(ctx).Select("password_hash").Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrOrgNotFound
	}
	if err != nil {
		return "", err
	}
	return org.PasswordHash, nil
}

func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&OrganizationModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func mapOrganization(org OrganizationModel) models.Organization {
	return models.Organization{
		ID:        org.ID,
		Name:      org.Name,
		Email:     org.Email,
		Metadata:  map[string]interface{}(org.Metadata),
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}
