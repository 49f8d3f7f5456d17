package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, models.ErrDuplicateEmail},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, models.ErrStoreUnavailable},
		{"deadline", context.DeadlineExceeded, models.ErrStoreUnavailable},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), models.ErrStoreUnavailable},
		{"unmapped", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPostgresError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
