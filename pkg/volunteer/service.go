package volunteer

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
	"github.com/trialmatch/platform/pkg/pipeline"
)

// Store is the persistence surface the service needs; satisfied by
// Repository.
type Store interface {
	Create(ctx context.Context, input CreateInput) (models.Volunteer, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Volunteer, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo     Store
	reports  *pipeline.ReportPipeline
	matcher  *pipeline.MatchPipeline
	producer *kafka.Producer
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewService(repo Store, reports *pipeline.ReportPipeline, matcher *pipeline.MatchPipeline, producer *kafka.Producer, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		reports:  reports,
		matcher:  matcher,
		producer: producer,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Submit runs the full intake flow: cleaning pipeline, matching
// pipeline, then persistence. Both pipelines run before anything is
// written, so a model or index failure aborts the request with no
// partial user record left behind.
func (s *Service) Submit(ctx context.Context, sub models.VolunteerSubmission) (models.SubmissionResponse, error) {
	if strings.TrimSpace(sub.Name) == "" || strings.TrimSpace(sub.Email) == "" {
		return models.SubmissionResponse{}, fmt.Errorf("name and email are required")
	}

	report, err := s.reports.Run(ctx, SerializeSubmission(sub))
	if err != nil {
		return models.SubmissionResponse{}, fmt.Errorf("cleaning pipeline: %w", err)
	}

	matches, err := s.matcher.Run(ctx, report.Report)
	if err != nil {
		return models.SubmissionResponse{}, fmt.Errorf("matching pipeline: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateInput{
		Name:   strings.TrimSpace(sub.Name),
		Email:  sub.Email,
		Report: report.Report,
		Intake: intakeMetadata(sub),
	})
	if err != nil {
		return models.SubmissionResponse{}, err
	}

	metrics.IncVolunteersRegistered()
	if report.Recleaned {
		metrics.IncReportRecleans()
	}

	if err := s.producer.PublishEvent(ctx, "volunteer.registered", "volunteer-service", map[string]interface{}{
		"user_id":   user.ID.String(),
		"email":     user.Email,
		"matches":   len(matches.Hits),
		"critiques": report.Critiques,
		"recleaned": report.Recleaned,
	}); err != nil {
		logger.Log.WithError(err).Warn("failed to publish volunteer.registered event")
	}

	return models.SubmissionResponse{
		User:        user,
		Matches:     matches.Hits,
		Explanation: matches.Explanation,
	}, nil
}

// Get serves the volunteer record, read-through cached.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Volunteer, error) {
	key := volunteerKey(id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var user models.Volunteer
			if err := json.Unmarshal(cached, &user); err == nil {
				return user, nil
			}
		}
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Volunteer{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(user); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				logger.Log.WithError(err).Debug("failed to cache volunteer record")
			}
		}
	}

	return user, nil
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func volunteerKey(id uuid.UUID) string {
	return "volunteer:" + id.String()
}

// SerializeSubmission flattens the raw intake into the text the
// cleaning pipeline consumes.
func SerializeSubmission(sub models.VolunteerSubmission) string {
	var b strings.Builder
	writeField := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	writeField("Name", sub.Name)
	writeField("Email", sub.Email)
	writeField("Phone", sub.Phone)
	writeField("Date of birth", sub.DateOfBirth)
	writeField("Gender", sub.Gender)
	writeField("Height", sub.Height)
	writeField("Weight", sub.Weight)
	writeField("Medical conditions", sub.MedicalConditions)
	writeField("Medications", sub.Medications)
	writeField("Allergies", sub.Allergies)
	writeField("Past surgeries", sub.PastSurgeries)

	for i, file := range sub.Files {
		fmt.Fprintf(&b, "Extracted file %d:\n%s\n", i+1, file)
	}

	return b.String()
}

// intakeMetadata keeps the structured demographics alongside the
// record; the free-text files are not persisted.
func intakeMetadata(sub models.VolunteerSubmission) map[string]interface{} {
	meta := map[string]interface{}{}
	put := func(key, value string) {
		if value != "" {
			meta[key] = value
		}
	}

	put("phone", sub.Phone)
	put("date_of_birth", sub.DateOfBirth)
	put("gender", sub.Gender)
	put("height", sub.Height)
	put("weight", sub.Weight)
	put("medical_conditions", sub.MedicalConditions)
	put("medications", sub.Medications)
	put("allergies", sub.Allergies)
	put("past_surgeries", sub.PastSurgeries)

	if len(meta) == 0 {
		return nil
	}
	return meta
}
