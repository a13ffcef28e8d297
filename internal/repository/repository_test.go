package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"receipt-ledger/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	if !errors.Is(mapError(pgx.ErrNoRows), ErrNotFound) {
		t.Error("ErrNoRows should map to ErrNotFound")
	}

	undefined := fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01", Message: `relation "receipts" does not exist`})
	mapped := mapError(undefined)
	if !errors.Is(mapped, ErrMissingIndex) {
		t.Errorf("undefined_table should map to ErrMissingIndex, got %v", mapped)
	}

	other := &pgconn.PgError{Code: "23505"}
	if errors.Is(mapError(other), ErrMissingIndex) {
		t.Error("unique violation must not look like a missing index")
	}
	if mapError(nil) != nil {
		t.Error("nil must stay nil")
	}
}

func TestScopeFilter(t *testing.T) {
	tests := []struct {
		name  string
		scope models.Scope
		want  []string
		args  int
	}{
		{
			name:  "personal",
			scope: models.Scope{UserID: "42"},
			want:  []string{"group_id IS NULL", "telegram_user_id = $1"},
			args:  1,
		},
		{
			name:  "group",
			scope: models.Scope{UserID: "42", GroupID: "g1"},
			want:  []string{"group_id = $1"},
			args:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := squirrel.Select("id").From("receipts").
				Where(scopeFilter(tt.scope)).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				t.Fatalf("ToSql: %v", err)
			}
			for _, frag := range tt.want {
				if !strings.Contains(sql, frag) {
					t.Errorf("sql %q missing %q", sql, frag)
				}
			}
			if len(args) != tt.args {
				t.Errorf("args = %v", args)
			}
		})
	}
}
