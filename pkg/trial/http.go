package trial

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/trialmatch/platform/pkg/common/logger"
	"github.com/trialmatch/platform/pkg/common/models"
	gatewayauth "github.com/trialmatch/platform/pkg/gateway/auth"
	"github.com/trialmatch/platform/pkg/gateway/middleware"
)

// MatchLister serves the per-trial match listings without importing the
// match package.
type MatchLister interface {
	ListByTrial(ctx context.Context, trialID uuid.UUID) ([]models.Match, error)
	ListApprovedByTrial(ctx context.Context, trialID uuid.UUID) ([]models.Match, error)
}

type Handler struct {
	service *Service
	matches MatchLister
}

func NewHandler(service *Service, matches MatchLister) *Handler {
	return &Handler{service: service, matches: matches}
}

// Register wires the trial routes. Creation requires an organization
// session token; the listings are open.
func (h *Handler) Register(r *mux.Router, tokens *gatewayauth.JWTManager) {
	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(tokens))
	protected.HandleFunc("/trials", h.handleCreate).Methods(http.MethodPost)

	r.HandleFunc("/trials/{trial_id}", h.handleListMatches).Methods(http.MethodGet)
	r.HandleFunc("/trials/{trial_id}/approved", h.handleListApproved).Methods(http.MethodGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Fall back to the session organization when the body omits org_id,
	// and refuse cross-organization creation.
	if claims, ok := r.Context().Value(middleware.OrgContextKey).(*gatewayauth.Claims); ok {
		if req.OrganizationID == uuid.Nil {
			req.OrganizationID = claims.OrganizationID
		} else if req.OrganizationID != claims.OrganizationID {
			http.Error(w, "cannot create trials for another organization", http.StatusForbidden)
			return
		}
	}

	trial, err := h.service.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrTitleExists):
			http.Error(w, "Trial title already exists.", http.StatusBadRequest)
		case errors.Is(err, ErrOrgMissing):
			http.Error(w, "organization not found", http.StatusNotFound)
		default:
			logger.Log.WithError(err).Error("failed to create trial")
			http.Error(w, "failed to create trial", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"trial": trial})
}

func (h *Handler) handleListMatches(w http.ResponseWriter, r *http.Request) {
	trialID, ok := h.parseTrialID(w, r)
	if !ok {
		return
	}

	matches, err := h.matches.ListByTrial(r.Context(), trialID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list matches for trial")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (h *Handler) handleListApproved(w http.ResponseWriter, r *http.Request) {
	trialID, ok := h.parseTrialID(w, r)
	if !ok {
		return
	}

	matches, err := h.matches.ListApprovedByTrial(r.Context(), trialID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list approved matches for trial")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (h *Handler) parseTrialID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	trialID, err := uuid.Parse(mux.Vars(r)["trial_id"])
	if err != nil {
		http.Error(w, "invalid trial id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	if _, err := h.service.Get(r.Context(), trialID); err != nil {
		if errors.Is(err, ErrTrialNotFound) {
			http.Error(w, "trial not found", http.StatusNotFound)
			return uuid.Nil, false
		}
		logger.Log.WithError(err).Error("failed to load trial")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return uuid.Nil, false
	}
	return trialID, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
