package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/trialmatch/platform/pkg/common/kafka"
	"github.com/trialmatch/platform/pkg/common/logger"
	"github.com/trialmatch/platform/pkg/common/models"
	"github.com/trialmatch/platform/pkg/observability/metrics"
)

// Checker answers existence queries for the match's referents.
type Checker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Store is the persistence surface the service needs; satisfied by
// Repository.
type Store interface {
	Create(ctx context.Context, trialID, volunteerID uuid.UUID) (models.Match, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Match, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus) error
	ListByTrial(ctx context.Context, trialID uuid.UUID) ([]models.Match, error)
	ListByTrialAndStatus(ctx context.Context, trialID uuid.UUID, status models.MatchStatus) ([]models.Match, error)
}

var (
	ErrTrialMissing     = errors.New("trial does not exist")
	ErrVolunteerMissing = errors.New("user does not exist")
	// ErrInvalidTransition rejects approved->rejected and
	// rejected->approved. Repeating the current status is treated as an
	// idempotent success instead.
	ErrInvalidTransition = errors.New("match already resolved")
)

type Service struct {
	repo       Store
	trials     Checker
	volunteers Checker
	producer   *kafka.Producer
}

func NewService(repo Store, trials, volunteers Checker, producer *kafka.Producer) *Service {
	return &Service{
		repo:       repo,
		trials:     trials,
		volunteers: volunteers,
		producer:   producer,
	}
}

func (s *Service) Create(ctx context.Context, req models.CreateMatchRequest) (models.Match, error) {
	exists, err := s.trials.Exists(ctx, req.TrialID)
	if err != nil {
		return models.Match{}, fmt.Errorf("checking trial: %w", err)
	}
	if !exists {
		return models.Match{}, ErrTrialMissing
	}

	exists, err = s.volunteers.Exists(ctx, req.VolunteerID)
	if err != nil {
		return models.Match{}, fmt.Errorf("checking user: %w", err)
	}
	if !exists {
		return models.Match{}, ErrVolunteerMissing
	}

	m, err := s.repo.Create(ctx, req.TrialID, req.VolunteerID)
	if err != nil {
		return models.Match{}, err
	}

	metrics.IncMatchesCreated()
	s.publish(ctx, "match.created", m)
	return m, nil
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID) (models.Match, error) {
	return s.resolve(ctx, id, models.MatchApproved, "match.approved")
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID) (models.Match, error) {
	return s.resolve(ctx, id, models.MatchRejected, "match.rejected")
}

func (s *Service) resolve(ctx context.Context, id uuid.UUID, status models.MatchStatus, eventType string) (models.Match, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Match{}, err
	}

	// Repeating the resolution is a no-op success; flipping an already
	// resolved match is refused.
	if m.Status == status {
		return m, nil
	}
	if m.Status != models.MatchPending {
		return models.Match{}, ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return models.Match{}, err
	}
	m.Status = status

	switch status {
	case models.MatchApproved:
		metrics.IncMatchesApproved()
	case models.MatchRejected:
		metrics.IncMatchesRejected()
	}

	s.publish(ctx, eventType, m)
	return m, nil
}

func (s *Service) ListByTrial(ctx context.Context, trialID uuid.UUID) ([]models.Match, error) {
	return s.repo.ListByTrial(ctx, trialID)
}

func (s *Service) ListApprovedByTrial(ctx context.Context, trialID uuid.UUID) ([]models.Match, error) {
	return s.repo.ListByTrialAndStatus(ctx, trialID, models.MatchApproved)
}

func (s *Service) publish(ctx context.Context, eventType string, m models.Match) {
	err := s.producer.PublishEvent(ctx, eventType, "match-service", map[string]interface{}{
		"match_id": m.ID.String(),
		"trial_id": m.TrialID.String(),
		"user_id":  m.VolunteerID.String(),
		"status":   string(m.Status),
	})
	if err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Warn("failed to publish match event")
	}
}
