package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/trialmatch/platform/pkg/common/models"
)

func testOrg() models.Organization {
	return models.Organization{
		ID:    uuid.New(),
		Name:  "Acme Research",
		Email: "research@acme.test",
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewJWTManager("0123456789abcdef", "trialmatch", "trialmatch-api", time.Hour)
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}

	org := testOrg()
	token, err := m.IssueToken(org)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validating token: %v", err)
	}
	if claims.OrganizationID != org.ID {
		t.Fatalf("expected org id %s, got %s", org.ID, claims.OrganizationID)
	}
	if claims.Email != org.Email {
		t.Fatalf("expected email %s, got %s", org.Email, claims.Email)
	}
}

func TestJWTRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTManager("short", "iss", "aud", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	m, err := NewJWTManager("0123456789abcdef", "trialmatch", "trialmatch-api", time.Hour)
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}

	token, err := m.IssueToken(testOrg())
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	if _, err := m.ValidateToken(context.Background(), token+"x"); err == nil {
		t.Fatal("expected tampered token to fail validation")
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	m, err := NewJWTManager("0123456789abcdef", "trialmatch", "trialmatch-api", time.Minute)
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}

	issued := time.Now().Add(-2 * time.Hour)
	m.nowFunc = func() time.Time { return issued }
	token, err := m.IssueToken(testOrg())
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	m.nowFunc = time.Now
	if _, err := m.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestJWTRejectsWrongIssuer(t *testing.T) {
	issuerA, err := NewJWTManager("0123456789abcdef", "issuer-a", "trialmatch-api", time.Hour)
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}
	issuerB, err := NewJWTManager("0123456789abcdef", "issuer-b", "trialmatch-api", time.Hour)
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}

	token, err := issuerA.IssueToken(testOrg())
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	if _, err := issuerB.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expected token from another issuer to fail validation")
	}
}
