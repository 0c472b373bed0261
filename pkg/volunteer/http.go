package volunteer

import (
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
	maxBody int64
}

func NewHandler(service *Service, maxBody int64) *Handler {
	return &Handler{service: service, maxBody: maxBody}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/users", h.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/users/", h.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/users/{user_id}", h.handleGet).Methods(http.MethodGet)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var sub models.VolunteerSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		logger.Log.WithError(err).Warn("invalid volunteer submission payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Submit(r.Context(), sub)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			http.Error(w, "Email already exists.", http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("volunteer submission failed")
		http.Error(w, "failed to process submission", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["user_id"])
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrVolunteerNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch volunteer")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
