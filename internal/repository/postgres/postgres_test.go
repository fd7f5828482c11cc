package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/splax/modulehub/internal/repository"
)

func TestMapErrorTranslatesDriverErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", fmt.Errorf("get user: %w", pgx.ErrNoRows), repository.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "packages_company_id_name_key"}, repository.ErrConflict},
		{"check violation", &pgconn.PgError{Code: checkViolation, ConstraintName: "notifications_type_check"}, repository.ErrInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	other := errors.New("connection reset")
	if got := mapError(other); got != other {
		t.Fatalf("unexpected translation of %v: %v", other, got)
	}
	if mapError(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestListNotificationsQueryHasStableOrder(t *testing.T) {
	if !strings.Contains(listNotificationsQuery, "ORDER BY n.created_at DESC, n.id DESC") {
		t.Fatalf("notifications must be ordered by created_at then id:\n%s", listNotificationsQuery)
	}
}
