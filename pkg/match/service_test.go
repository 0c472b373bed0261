package match

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/trialmatch/platform/pkg/common/models"
)

type memoryStore struct {
	records map[uuid.UUID]models.Match
	updates int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[uuid.UUID]models.Match{}}
}

func (s *memoryStore) Create(ctx context.Context, trialID, volunteerID uuid.UUID) (models.Match, error) {
	for _, m := range s.records {
		if m.TrialID == trialID && m.VolunteerID == volunteerID {
			return models.Match{}, ErrDuplicateMatch
		}
	}
	m := models.Match{ID: uuid.New(), TrialID: trialID, VolunteerID: volunteerID, Status: models.MatchPending}
	s.records[m.ID] = m
	return m, nil
}

func (s *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (models.Match, error) {
	m, ok := s.records[id]
	if !ok {
		return models.Match{}, ErrMatchNotFound
	}
	return m, nil
}

func (s *memoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus) error {
	m, ok := s.records[id]
	if !ok {
		return ErrMatchNotFound
	}
	m.Status = status
	s.records[id] = m
	s.updates++
	return nil
}

func (s *memoryStore) ListByTrial(ctx context.Context, trialID uuid.UUID) ([]models.Match, error) {
	var out []models.Match
	for _, m := range s.records {
		if m.TrialID == trialID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryStore) ListByTrialAndStatus(ctx context.Context, trialID uuid.UUID, status models.MatchStatus) ([]models.Match, error) {
	var out []models.Match
	for _, m := range s.records {
		if m.TrialID == trialID && m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

type staticChecker struct {
	exists bool
}

func (c staticChecker) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.exists, nil
}

func newMatchRequest() models.CreateMatchRequest {
	return models.CreateMatchRequest{TrialID: uuid.New(), VolunteerID: uuid.New()}
}

func TestCreateRejectsMissingTrial(t *testing.T) {
	svc := NewService(newMemoryStore(), staticChecker{exists: false}, staticChecker{exists: true}, nil)

	_, err := svc.Create(context.Background(), newMatchRequest())
	if !errors.Is(err, ErrTrialMissing) {
		t.Fatalf("expected ErrTrialMissing, got %v", err)
	}
}

func TestCreateRejectsMissingVolunteer(t *testing.T) {
	svc := NewService(newMemoryStore(), staticChecker{exists: true}, staticChecker{exists: false}, nil)

	_, err := svc.Create(context.Background(), newMatchRequest())
	if !errors.Is(err, ErrVolunteerMissing) {
		t.Fatalf("expected ErrVolunteerMissing, got %v", err)
	}
}

func TestCreateRejectsDuplicatePair(t *testing.T) {
	svc := NewService(newMemoryStore(), staticChecker{exists: true}, staticChecker{exists: true}, nil)
	req := newMatchRequest()

	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(context.Background(), req)
	if !errors.Is(err, ErrDuplicateMatch) {
		t.Fatalf("expected ErrDuplicateMatch, got %v", err)
	}
}

func TestApproveSetsStatus(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, staticChecker{exists: true}, staticChecker{exists: true}, nil)

	created, err := svc.Create(context.Background(), newMatchRequest())
	if err != nil {
		t.Fatalf("creating match: %v", err)
	}

	approved, err := svc.Approve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("approving match: %v", err)
	}
	if approved.Status != models.MatchApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}
	if store.records[created.ID].Status != models.MatchApproved {
		t.Fatal("approval not persisted")
	}
}

func TestRepeatResolutionIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, staticChecker{exists: true}, staticChecker{exists: true}, nil)

	created, err := svc.Create(context.Background(), newMatchRequest())
	if err != nil {
		t.Fatalf("creating match: %v", err)
	}
	if _, err := svc.Approve(context.Background(), created.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}

	again, err := svc.Approve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("repeated approve must succeed, got %v", err)
	}
	if again.Status != models.MatchApproved {
		t.Fatalf("expected approved status, got %s", again.Status)
	}
	if store.updates != 1 {
		t.Fatalf("repeat must not write again, got %d updates", store.updates)
	}
}

func TestCrossFlipIsRefused(t *testing.T) {
	svc := NewService(newMemoryStore(), staticChecker{exists: true}, staticChecker{exists: true}, nil)

	created, err := svc.Create(context.Background(), newMatchRequest())
	if err != nil {
		t.Fatalf("creating match: %v", err)
	}
	if _, err := svc.Approve(context.Background(), created.ID); err != nil {
		t.Fatalf("approving match: %v", err)
	}

	_, err = svc.Reject(context.Background(), created.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestResolveMissingMatch(t *testing.T) {
	svc := NewService(newMemoryStore(), staticChecker{exists: true}, staticChecker{exists: true}, nil)

	_, err := svc.Approve(context.Background(), uuid.New())
	if !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}
