package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is the envelope published to the event bus for every domain
// state change (trial.created, match.approved, ...).
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Organization posts trials and reviews proposed matches.
type Organization struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Trial is a clinical-trial posting. Trials are immutable once created
// and are indexed into the similarity store at creation time.
type Trial struct {
	ID             uuid.UUID              `json:"id"`
	OrganizationID uuid.UUID              `json:"org_id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Eligibility    string                 `json:"eligibility"`
	StartDate      string                 `json:"start_date"`
	EndDate        string                 `json:"end_date"`
	Compensation   string                 `json:"compensation"`
	Location       string                 `json:"location"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Volunteer is the persisted user record produced after the cleaning
// pipeline has generated a report.
type Volunteer struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	Report    string                 `json:"report"`
	Intake    map[string]interface{} `json:"intake,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchApproved MatchStatus = "approved"
	MatchRejected MatchStatus = "rejected"
)

// Match is a proposed volunteer/trial pairing awaiting staff review.
type Match struct {
	ID          uuid.UUID   `json:"id"`
	TrialID     uuid.UUID   `json:"trial_id"`
	VolunteerID uuid.UUID   `json:"user_id"`
	Status      MatchStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// VolunteerSubmission is the raw intake a prospective participant
// provides. It lives only for the duration of one request; the cleaning
// pipeline consumes it and the report is what gets stored.
type VolunteerSubmission struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone,omitempty"`
	DateOfBirth       string   `json:"date_of_birth,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	Height            string   `json:"height,omitempty"`
	Weight            string   `json:"weight,omitempty"`
	MedicalConditions string   `json:"medical_conditions,omitempty"`
	Medications       string   `json:"medications,omitempty"`
	Allergies         string   `json:"allergies,omitempty"`
	PastSurgeries     string   `json:"past_surgeries,omitempty"`
	Files             []string `json:"files,omitempty"`
}

type SignupRequest struct {
	Name     string                 `json:"name"`
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	Org   Organization `json:"org"`
}

type CreateTrialRequest struct {
	OrganizationID uuid.UUID              `json:"org_id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Eligibility    string                 `json:"eligibility"`
	StartDate      string                 `json:"start_date"`
	EndDate        string                 `json:"end_date"`
	Compensation   string                 `json:"compensation"`
	Location       string                 `json:"location"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type CreateMatchRequest struct {
	TrialID     uuid.UUID `json:"trial_id"`
	VolunteerID uuid.UUID `json:"user_id"`
}

// TrialHit is one nearest-neighbor result from the similarity index.
type TrialHit struct {
	TrialID  string  `json:"trial_id"`
	Document string  `json:"document"`
	Score    float32 `json:"score"`
}

// SubmissionResponse is returned from POST /users/: the stored record
// plus the candidate trials and the model's justification.
type SubmissionResponse struct {
	User        Volunteer  `json:"user"`
	Matches     []TrialHit `json:"matches"`
	Explanation string     `json:"explanation"`
}
