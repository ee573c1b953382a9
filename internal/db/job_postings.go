package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobPostingColumns = `id, url, role_title, platform, cleaned_text, about_company,
		        content_hash, fetch_status, fetched_at, created_at`

// scanner is satisfied by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanJobPosting(row scanner) (*JobPosting, error) {
	var p JobPosting
	err := row.Scan(&p.ID, &p.URL, &p.RoleTitle, &p.Platform, &p.CleanedText,
		&p.AboutCompany, &p.ContentHash, &p.FetchStatus, &p.FetchedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetJobPostingByID retrieves a job posting by its ID. A missing posting
// returns nil, nil.
func (db *DB) GetJobPostingByID(ctx context.Context, id uuid.UUID) (*JobPosting, error) {
	p, err := scanJobPosting(db.pool.QueryRow(ctx,
		`SELECT `+jobPostingColumns+`
		 FROM job_postings WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job posting: %w", err)
	}
	return p, nil
}

// GetJobPostingByURL retrieves a job posting by its URL. A missing posting
// returns nil, nil.
func (db *DB) GetJobPostingByURL(ctx context.Context, url string) (*JobPosting, error) {
	p, err := scanJobPosting(db.pool.QueryRow(ctx,
		`SELECT `+jobPostingColumns+`
		 FROM job_postings WHERE url = $1`,
		url,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job posting: %w", err)
	}
	return p, nil
}

// buildListQuery returns the count and page queries for opts together with
// their shared filter arguments. The page query takes limit and offset as
// two extra trailing arguments.
func buildListQuery(opts ListJobPostingsOptions) (countQuery, pageQuery string, args []any, limit, offset int) {
	var conditions []string
	argIndex := 1

	if opts.Platform != nil && *opts.Platform != "" {
		conditions = append(conditions, fmt.Sprintf("platform = $%d", argIndex))
		args = append(args, *opts.Platform)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	opts = opts.Normalized()
	limit, offset = opts.Limit, opts.Offset

	countQuery = "SELECT COUNT(*) FROM job_postings" + whereClause
	pageQuery = fmt.Sprintf(
		`SELECT %s
		 FROM job_postings%s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		jobPostingColumns, whereClause, argIndex, argIndex+1,
	)
	return countQuery, pageQuery, args, limit, offset
}

// ListJobPostings returns a page of postings, newest first, and the total
// number of postings matching the filter.
func (db *DB) ListJobPostings(ctx context.Context, opts ListJobPostingsOptions) ([]JobPosting, int, error) {
	countQuery, pageQuery, args, limit, offset := buildListQuery(opts)

	var total int
	if err := db.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count job postings: %w", err)
	}

	rows, err := db.pool.Query(ctx, pageQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list job postings: %w", err)
	}
	defer rows.Close()

	var postings []JobPosting
	for rows.Next() {
		p, err := scanJobPosting(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job posting: %w", err)
		}
		postings = append(postings, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list job postings: %w", err)
	}

	return postings, total, nil
}
