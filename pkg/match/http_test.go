package match

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/trialmatch/platform/pkg/common/models"
)

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Creation stays open while the review routes honor whatever middleware
// guards the review router.
func TestRegisterSplitsReviewRoutes(t *testing.T) {
	svc := NewService(newMemoryStore(), staticChecker{exists: true}, staticChecker{exists: true}, nil)
	h := NewHandler(svc)

	open := mux.NewRouter()
	review := open.NewRoute().Subrouter()
	review.Use(requireAuth)
	h.Register(open, review)

	createBody := fmt.Sprintf(`{"trial_id":%q,"user_id":%q}`, uuid.New(), uuid.New())
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(createBody)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("creation must not require auth, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Match models.Match `json:"match"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}

	approvePath := "/approve/" + created.Match.ID.String()

	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, approvePath, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("review route must require auth, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, approvePath, nil)
	req.Header.Set("Authorization", "Bearer staff-token")
	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized approval should succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}
