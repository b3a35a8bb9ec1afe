package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_order_number"}

	if !IsUniqueViolation(pgErr, "") {
		t.Fatalf("pg unique violation should match without a constraint filter")
	}
	if !IsUniqueViolation(pgErr, "idx_orders_order_number") {
		t.Fatalf("pg unique violation should match its constraint")
	}
	if IsUniqueViolation(pgErr, "idx_other") {
		t.Fatalf("constraint filter should narrow the match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil error should not match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: orders.order_number"), "") {
		t.Fatalf("sqlite message should match")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "idx_coupon_usages_order"`), "idx_coupon_usages_order") {
		t.Fatalf("text fallback should match constraint substring")
	}
}
