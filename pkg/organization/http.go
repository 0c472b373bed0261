package organization

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/trialmatch/platform/pkg/common/logger"
	"github.com/trialmatch/platform/pkg/common/models"
	"github.com/trialmatch/platform/pkg/gateway/auth"
)

// TrialLister provides the trial listing for GET /orgs/{org_id} without
// importing the trial package.
type TrialLister interface {
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Trial, error)
}

type Handler struct {
	service     *Service
	trials      TrialLister
	tokenSigner *auth.JWTManager
}

func NewHandler(service *Service, trials TrialLister, tokenSigner *auth.JWTManager) *Handler {
	return &Handler{service: service, trials: trials, tokenSigner: tokenSigner}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/signup-org", h.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/login-org", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/orgs/{org_id}", h.handleListTrials).Methods(http.MethodGet)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	org, err := h.service.Signup(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			http.Error(w, "Email already exists.", http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Warn("organization signup failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := h.tokenSigner.IssueToken(org)
	if err != nil {
		logger.Log.WithError(err).Error("issue token failed during signup")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, models.AuthResponse{Token: token, Org: org})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	org, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid information", http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("organization login failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := h.tokenSigner.IssueToken(org)
	if err != nil {
		logger.Log.WithError(err).Error("failed issuing token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{Token: token, Org: org})
}

func (h *Handler) handleListTrials(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(mux.Vars(r)["org_id"])
	if err != nil {
		http.Error(w, "invalid organization id", http.StatusBadRequest)
		return
	}

	if _, err := h.service.Get(r.Context(), orgID); err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to load organization")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	trials, err := h.trials.ListByOrg(r.Context(), orgID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list trials for organization")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"trials": trials})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
