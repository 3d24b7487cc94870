package repositories

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside-analytics/courtside/pkg/models"
)

func TestNormalizeRows(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []models.Row
		wantErr bool
	}{
		{"nil", "", []models.Row{}, false},
		{"json null", "null", []models.Row{}, false},
		{"padded null", "  null\n", []models.Row{}, false},
		{"empty array", "[]", []models.Row{}, false},
		{"array", `[{"avg_points":78.4},{"avg_points":81}]`, []models.Row{{"avg_points": 78.4}, {"avg_points": 81.0}}, false},
		{"single object", `{"total":3}`, []models.Row{{"total": 3.0}}, false},
		{"scalar", `42`, nil, true},
		{"array of scalars", `[1,2]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := NormalizeRows([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unexpected query result shape")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestExecutionErrorMessage(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42703", Message: `column "pts" does not exist`}
	assert.Equal(t, `column "pts" does not exist`, executionErrorMessage(pgErr))
	assert.Equal(t, `column "pts" does not exist`, executionErrorMessage(errors.Join(errors.New("wrapped"), pgErr)))

	msg := executionErrorMessage(errors.New("dial tcp: postgres://courtside:secret@db:5432/courtside refused"))
	assert.NotContains(t, msg, "secret")
}
