package match

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/trialmatch/platform/pkg/common/logger"
	"github.com/trialmatch/platform/pkg/common/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register wires the match routes. Creation stays on the open router;
// the approve/reject review routes go on review, which callers mount
// behind staff authentication when an identity provider is configured.
func (h *Handler) Register(open, review *mux.Router) {
	open.HandleFunc("/matches", h.handleCreate).Methods(http.MethodPost)
	review.HandleFunc("/approve/{match_id}", h.handleApprove).Methods(http.MethodPost)
	review.HandleFunc("/reject/{match_id}", h.handleReject).Methods(http.MethodPost)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TrialID == uuid.Nil || req.VolunteerID == uuid.Nil {
		http.Error(w, "trial_id and user_id are required", http.StatusBadRequest)
		return
	}

	m, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrTrialMissing):
			http.Error(w, "trial does not exist", http.StatusNotFound)
		case errors.Is(err, ErrVolunteerMissing):
			http.Error(w, "user does not exist", http.StatusNotFound)
		case errors.Is(err, ErrDuplicateMatch):
			http.Error(w, "match already exists", http.StatusConflict)
		default:
			logger.Log.WithError(err).Error("failed to create match")
			http.Error(w, "failed to create match", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"match": m})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, h.service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleResolve(w, r, h.service.Reject)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request, resolve func(ctx context.Context, id uuid.UUID) (models.Match, error)) {
	matchID, err := uuid.Parse(mux.Vars(r)["match_id"])
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	m, err := resolve(r.Context(), matchID)
	if err != nil {
		switch {
		case errors.Is(err, ErrMatchNotFound):
			http.Error(w, "match not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, "match already resolved", http.StatusConflict)
		default:
			logger.Log.WithError(err).Error("failed to update match status")
			http.Error(w, "failed to update match", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"match": m})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
