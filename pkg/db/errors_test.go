package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_offers_business_project"}
	wrapped := fmt.Errorf("create offer: %w", pgErr)

	if !IsUniqueViolation(wrapped, "") {
		t.Fatalf("expected pg unique violation to match")
	}
	if !IsUniqueViolation(wrapped, "ux_offers_business_project") {
		t.Fatalf("expected constraint name to match")
	}
	if IsUniqueViolation(wrapped, "ux_business_clips_active_business") {
		t.Fatalf("different constraint should not match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: offers.business_id, offers.project_id"), "") {
		t.Fatalf("expected sqlite unique failure to match")
	}
	if IsUniqueViolation(nil, "") || IsUniqueViolation(errors.New("boom"), "") {
		t.Fatalf("unexpected match")
	}
}
