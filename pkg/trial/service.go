package trial

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/trialmatch/platform/pkg/common/kafka"
	"github.com/trialmatch/platform/pkg/common/logger"
	"github.com/trialmatch/platform/pkg/common/models"
	"github.com/trialmatch/platform/pkg/observability/metrics"
)

// OrgChecker verifies the owning organization exists before a trial is
// accepted.
type OrgChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Indexer receives the serialized trial for nearest-neighbor retrieval.
type Indexer interface {
	Add(ctx context.Context, id, document string) error
}

var ErrOrgMissing = fmt.Errorf("owning organization does not exist")

// Store is the persistence surface the service needs; satisfied by
// Repository.
type Store interface {
	Create(ctx context.Context, t models.Trial) (models.Trial, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Trial, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Trial, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo     Store
	orgs     OrgChecker
	index    Indexer
	producer *kafka.Producer
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewService(repo Store, orgs OrgChecker, index Indexer, producer *kafka.Producer, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		orgs:     orgs,
		index:    index,
		producer: producer,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Create persists the trial, then indexes its serialized form keyed by
// the new id. There is deliberately no compensating delete when the
// index write fails: the trial stays persisted but unreachable by
// matching until reindexed, and the caller sees the failure.
func (s *Service) Create(ctx context.Context, req models.CreateTrialRequest) (models.Trial, error) {
	if strings.TrimSpace(req.Title) == "" {
		return models.Trial{}, fmt.Errorf("title is required")
	}
	if req.OrganizationID == uuid.Nil {
		return models.Trial{}, ErrOrgMissing
	}

	exists, err := s.orgs.Exists(ctx, req.OrganizationID)
	if err != nil {
		return models.Trial{}, fmt.Errorf("checking organization: %w", err)
	}
	if !exists {
		return models.Trial{}, ErrOrgMissing
	}

	trial, err := s.repo.Create(ctx, models.Trial{
		ID:             uuid.New(),
		OrganizationID: req.OrganizationID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Eligibility:    req.Eligibility,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Compensation:   req.Compensation,
		Location:       req.Location,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return models.Trial{}, err
	}

	if err := s.index.Add(ctx, trial.ID.String(), SerializeTrial(trial)); err != nil {
		logger.Log.WithError(err).WithField("trial_id", trial.ID).
			Error("trial persisted but index write failed; trial unreachable by matching")
		return models.Trial{}, fmt.Errorf("indexing trial: %w", err)
	}

	if err := s.producer.PublishEvent(ctx, "trial.created", "trial-service", map[string]interface{}{
		"trial_id": trial.ID.String(),
		"org_id":   trial.OrganizationID.String(),
		"title":    trial.Title,
	}); err != nil {
		logger.Log.WithError(err).Warn("failed to publish trial.created event")
	}

	s.invalidateOrgCache(ctx, trial.OrganizationID)
	metrics.IncTrialsCreated()

	return trial, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Trial, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// ListByOrg serves from the Redis cache when it can; cache failures
// degrade to a direct read.
func (s *Service) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Trial, error) {
	key := orgTrialsKey(orgID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var trials []models.Trial
			if err := json.Unmarshal(cached, &trials); err == nil {
				return trials, nil
			}
		}
	}

	trials, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(trials); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				logger.Log.WithError(err).Debug("failed to cache org trials")
			}
		}
	}

	return trials, nil
}

func (s *Service) invalidateOrgCache(ctx context.Context, orgID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, orgTrialsKey(orgID)).Err(); err != nil {
		logger.Log.WithError(err).Debug("failed to invalidate org trials cache")
	}
}

func orgTrialsKey(orgID uuid.UUID) string {
	return "org-trials:" + orgID.String()
}

// SerializeTrial flattens a trial into the text stored in the
// similarity index.
func SerializeTrial(t models.Trial) string {
	return fmt.Sprintf(
		"Title: %s\nDescription: %s\nEligibility: %s\nStart date: %s\nEnd date: %s\nCompensation: %s\nLocation: %s",
		t.Title, t.Description, t.Eligibility, t.StartDate, t.EndDate, t.Compensation, t.Location,
	)
}
