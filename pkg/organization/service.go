package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/trialmatch/platform/pkg/common/models"
	"github.com/trialmatch/platform/pkg/observability/metrics"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials deliberately covers both unknown email and wrong
// password so login responses never reveal which one failed.
var ErrInvalidCredentials = errors.New("invalid information")

// Store is the persistence surface the service needs; satisfied by
// Repository.
type Store interface {
	Create(ctx context.Context, input CreateInput) (models.Organization, error)
	GetByEmail(ctx context.Context, email string) (models.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Organization, error)
	GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (models.Organization, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return models.Organization{}, fmt.Errorf("name and email are required")
	}
	if req.Password == "" {
		return models.Organization{}, fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Organization{}, err
	}

	org, err := s.repo.Create(ctx, CreateInput{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: string(hash),
		Metadata:     req.Metadata,
	})
	if err != nil {
		return models.Organization{}, err
	}

	metrics.IncOrgSignups()
	return org, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (models.Organization, error) {
	org, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return models.Organization{}, ErrInvalidCredentials
		}
		return models.Organization{}, err
	}
	if password == "" {
		return models.Organization{}, ErrInvalidCredentials
	}

	hash, err := s.repo.GetPasswordHash(ctx, org.ID)
	if err != nil {
		return models.Organization{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.Organization{}, ErrInvalidCredentials
	}

	metrics.IncOrgLogins()
	return org, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}
