package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spigell/riasec-matcher/internal/assessment"
)

// ErrResultNotFound is returned when a session has no stored result.
var ErrResultNotFound = errors.New("assessment result not found")

// SaveResult appends a finalized result. Earlier results of the same session
// are kept as history.
func (db *DB) SaveResult(ctx context.Context, res *assessment.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO assessment_results (session_id, category_code, data, finished_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, res.SessionID, res.CategoryCode, string(data), res.FinishedAt.UTC(), db.now().UTC())
	if err != nil {
		return fmt.Errorf("save result for session %s: %w", res.SessionID, err)
	}
	return nil
}

// LatestResult returns the most recent result stored for the session.
func (db *DB) LatestResult(ctx context.Context, sessionID string) (*assessment.Result, error) {
	var data string
	err := db.QueryRowContext(ctx, `
		SELECT data FROM assessment_results
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrResultNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load result for session %s: %w", sessionID, err)
	}

	var res assessment.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("decode result for session %s: %w", sessionID, err)
	}
	return &res, nil
}
