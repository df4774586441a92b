package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: CredentialUniqueConstraint,
	}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{
			name:       "нарушение нужного ограничения",
			err:        uniqueErr,
			constraint: CredentialUniqueConstraint,
			want:       true,
		},
		{
			name:       "обернутая ошибка распознается",
			err:        fmt.Errorf("storage.InsertCredential: %w", uniqueErr),
			constraint: CredentialUniqueConstraint,
			want:       true,
		},
		{
			name:       "пустое имя ограничения совпадает с любым",
			err:        uniqueErr,
			constraint: "",
			want:       true,
		},
		{
			name:       "чужое ограничение не совпадает",
			err:        uniqueErr,
			constraint: EntitlementUniqueConstraint,
			want:       false,
		},
		{
			name: "другой код ошибки",
			err: &pgconn.PgError{
				Code:           pgerrcode.ForeignKeyViolation,
				ConstraintName: CredentialUniqueConstraint,
			},
			constraint: CredentialUniqueConstraint,
			want:       false,
		},
		{
			name:       "обычная ошибка",
			err:        errors.New("connection refused"),
			constraint: CredentialUniqueConstraint,
			want:       false,
		},
		{
			name:       "nil",
			err:        nil,
			constraint: CredentialUniqueConstraint,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err, tt.constraint))
		})
	}
}

func TestIsCredentialUniqueViolation(t *testing.T) {
	s := &Storage{}

	credErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: CredentialUniqueConstraint,
	}
	assert.True(t, s.IsCredentialUniqueViolation(credErr))

	otherErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: ExceptionUniqueConstraint,
	}
	assert.False(t, s.IsCredentialUniqueViolation(otherErr))
}
