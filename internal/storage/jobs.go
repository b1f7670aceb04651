package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/catalog"
)

const defaultPageSize = 200

// ImportJobs upserts jobs by id and returns how many rows were written.
func (db *DB) ImportJobs(ctx context.Context, jobs []*catalog.Job) (int, error) {
	written := 0
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO jobs (job_id, category_code, primary_cluster, data, imported_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(job_id) DO UPDATE SET
				category_code = excluded.category_code,
				primary_cluster = excluded.primary_cluster,
				data = excluded.data,
				imported_at = excluded.imported_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := db.now().UTC()
		for _, job := range jobs {
			data, err := json.Marshal(job)
			if err != nil {
				return fmt.Errorf("encode job %s: %w", job.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, job.ID, job.CategoryCode, job.PrimaryCluster, string(data), now); err != nil {
				return fmt.Errorf("import job %s: %w", job.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	db.logger.Info("imported jobs", zap.Int("count", written))
	return written, nil
}

// CountJobs returns the catalog size.
func (db *DB) CountJobs(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// JobReader streams the catalog in job id order, one page per query.
type JobReader struct {
	db       *DB
	pageSize int
}

func (db *DB) Jobs(pageSize int) *JobReader {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &JobReader{db: db, pageSize: pageSize}
}

// All yields every stored job. Rows that fail to decode are yielded as
// errors; a failed query ends the iteration.
func (r *JobReader) All(ctx context.Context) iter.Seq2[*catalog.Job, error] {
	return func(yield func(*catalog.Job, error) bool) {
		after := ""
		for {
			page, err := r.page(ctx, after)
			if err != nil {
				yield(nil, &catalog.SourceError{Err: fmt.Errorf("read jobs after %q: %w", after, err)})
				return
			}

			for _, row := range page {
				job := new(catalog.Job)
				if err := json.Unmarshal([]byte(row.data), job); err != nil {
					if !yield(nil, fmt.Errorf("job %s: %w: %v", row.id, catalog.ErrInvalidJob, err)) {
						return
					}
					continue
				}
				if !yield(job, nil) {
					return
				}
			}

			if len(page) < r.pageSize {
				return
			}
			after = page[len(page)-1].id
		}
	}
}

type jobRow struct {
	id   string
	data string
}

func (r *JobReader) page(ctx context.Context, after string) ([]jobRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_id, data FROM jobs
		WHERE job_id > ?
		ORDER BY job_id
		LIMIT ?
	`, after, r.pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []jobRow
	for rows.Next() {
		var row jobRow
		if err := rows.Scan(&row.id, &row.data); err != nil {
			return nil, err
		}
		page = append(page, row)
	}
	return page, rows.Err()
}
