package trial

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/trialmatch/platform/pkg/common/logger"
	"github.com/trialmatch/platform/pkg/common/models"
)

func init() {
	logger.Init()
}

type memoryStore struct {
	trials map[uuid.UUID]models.Trial
}

func newMemoryStore() *memoryStore {
	return &memoryStore{trials: map[uuid.UUID]models.Trial{}}
}

func (s *memoryStore) Create(ctx context.Context, t models.Trial) (models.Trial, error) {
	for _, existing := range s.trials {
		if existing.Title == t.Title {
			return models.Trial{}, ErrTitleExists
		}
	}
	s.trials[t.ID] = t
	return t, nil
}

func (s *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (models.Trial, error) {
	t, ok := s.trials[id]
	if !ok {
		return models.Trial{}, ErrTrialNotFound
	}
	return t, nil
}

func (s *memoryStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Trial, error) {
	var out []models.Trial
	for _, t := range s.trials {
		if t.OrganizationID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := s.trials[id]
	return ok, nil
}

type staticOrgChecker struct {
	exists bool
}

func (c staticOrgChecker) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.exists, nil
}

type recordingIndexer struct {
	docs map[string]string
	err  error
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{docs: map[string]string{}}
}

func (i *recordingIndexer) Add(ctx context.Context, id, document string) error {
	if i.err != nil {
		return i.err
	}
	i.docs[id] = document
	return nil
}

func trialRequest() models.CreateTrialRequest {
	return models.CreateTrialRequest{
		OrganizationID: uuid.New(),
		Title:          "Sleep apnea device study",
		Description:    "Testing a new CPAP alternative",
		Location:       "Boston, MA",
	}
}

func TestCreateRejectsMissingOrg(t *testing.T) {
	svc := NewService(newMemoryStore(), staticOrgChecker{exists: false}, newRecordingIndexer(), nil, nil, 0)

	_, err := svc.Create(context.Background(), trialRequest())
	if !errors.Is(err, ErrOrgMissing) {
		t.Fatalf("expected ErrOrgMissing, got %v", err)
	}
}

func TestCreateRejectsDuplicateTitle(t *testing.T) {
	indexer := newRecordingIndexer()
	svc := NewService(newMemoryStore(), staticOrgChecker{exists: true}, indexer, nil, nil, 0)

	if _, err := svc.Create(context.Background(), trialRequest()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(context.Background(), trialRequest())
	if !errors.Is(err, ErrTitleExists) {
		t.Fatalf("expected ErrTitleExists, got %v", err)
	}
	if len(indexer.docs) != 1 {
		t.Fatalf("duplicate must not be indexed, got %d documents", len(indexer.docs))
	}
}

func TestCreateIndexesSerializedTrial(t *testing.T) {
	indexer := newRecordingIndexer()
	svc := NewService(newMemoryStore(), staticOrgChecker{exists: true}, indexer, nil, nil, 0)

	created, err := svc.Create(context.Background(), trialRequest())
	if err != nil {
		t.Fatalf("creating trial: %v", err)
	}

	doc, ok := indexer.docs[created.ID.String()]
	if !ok {
		t.Fatal("trial was not indexed under its id")
	}
	if !strings.Contains(doc, "Title: Sleep apnea device study") {
		t.Fatalf("indexed document missing title line: %q", doc)
	}
}

func TestCreateIndexFailureSurfaced(t *testing.T) {
	store := newMemoryStore()
	indexer := newRecordingIndexer()
	indexer.err = errors.New("index offline")
	svc := NewService(store, staticOrgChecker{exists: true}, indexer, nil, nil, 0)

	_, err := svc.Create(context.Background(), trialRequest())
	if err == nil {
		t.Fatal("expected the index failure to fail the request")
	}
	// The persisted row survives for later reindexing.
	if len(store.trials) != 1 {
		t.Fatalf("expected the trial row to stay persisted, got %d rows", len(store.trials))
	}
}

func TestListByOrgWithoutCache(t *testing.T) {
	svc := NewService(newMemoryStore(), staticOrgChecker{exists: true}, newRecordingIndexer(), nil, nil, 0)
	req := trialRequest()

	created, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("creating trial: %v", err)
	}

	trials, err := svc.ListByOrg(context.Background(), req.OrganizationID)
	if err != nil {
		t.Fatalf("listing trials: %v", err)
	}
	if len(trials) != 1 || trials[0].ID != created.ID {
		t.Fatalf("expected the created trial, got %+v", trials)
	}
}
