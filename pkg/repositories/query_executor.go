package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/database"
	"github.com/courtside-analytics/courtside/pkg/logging"
	"github.com/courtside-analytics/courtside/pkg/metrics"
	"github.com/courtside-analytics/courtside/pkg/models"
)

// QueryExecutor runs validated chat SQL against the league database.
type QueryExecutor interface {
	// ExecuteReadOnly runs sqlQuery and returns its rows. Database failures are reported
	// in ExecutionResult.Error rather than as a Go error.
	ExecuteReadOnly(ctx context.Context, sqlQuery string) models.ExecutionResult
}

type queryExecutor struct {
	db               *database.DB
	statementTimeout time.Duration
	logger           *zap.Logger
}

// NewQueryExecutor creates an executor that calls the execute_readonly_sql function
// inside a READ ONLY transaction bounded by statementTimeout.
func NewQueryExecutor(db *database.DB, statementTimeout time.Duration, logger *zap.Logger) QueryExecutor {
	return &queryExecutor{
		db:               db,
		statementTimeout: statementTimeout,
		logger:           logger.Named("query-executor"),
	}
}

var _ QueryExecutor = (*queryExecutor)(nil)

func (e *queryExecutor) ExecuteReadOnly(ctx context.Context, sqlQuery string) models.ExecutionResult {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	raw, err := e.run(ctx, sqlQuery)
	if err != nil {
		e.logger.Debug("Chat query failed",
			zap.String("sql", logging.SanitizeQuery(sqlQuery)),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return models.ExecutionResult{Error: executionErrorMessage(err)}
	}

	rows, err := NormalizeRows(raw)
	if err != nil {
		return models.ExecutionResult{Error: err.Error()}
	}
	return models.ExecutionResult{Rows: rows}
}

func (e *queryExecutor) run(ctx context.Context, sqlQuery string) ([]byte, error) {
	tx, err := e.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	if e.statementTimeout > 0 {
		timeout := fmt.Sprintf("%dms", e.statementTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('statement_timeout', $1, true)`, timeout); err != nil {
			return nil, fmt.Errorf("failed to set statement timeout: %w", err)
		}
	}

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT execute_readonly_sql($1)`, sqlQuery).Scan(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// executionErrorMessage is the text handed to the evaluator. Postgres errors keep their
// message (it tells the model what to fix); anything else is sanitized.
func executionErrorMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return logging.SanitizeError(err)
}

// NormalizeRows converts the RPC's JSON result into rows. The result may be an
// array of objects, a single object, or null; all three become a slice.
func NormalizeRows(raw []byte) ([]models.Row, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return []models.Row{}, nil
	}

	switch trimmed[0] {
	case '[':
		var rows []models.Row
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("unexpected query result shape: %w", err)
		}
		if rows == nil {
			rows = []models.Row{}
		}
		return rows, nil
	case '{':
		var row models.Row
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("unexpected query result shape: %w", err)
		}
		return []models.Row{row}, nil
	default:
		return nil, fmt.Errorf("unexpected query result shape: %s", logging.TruncateString(string(trimmed), 100))
	}
}
