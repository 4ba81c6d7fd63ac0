package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 5 * time.Second

	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

// PostgresSource reads the directory from the apis table, ordered by its
// position column. The expected schema mirrors the JSON record.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresSource) Load(ctx context.Context) ([]API, error) {
	var recs []record

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT name, description, category, auth, https, cors, link, slug,
			       latency, success_rate, premium, rating
			FROM apis
			ORDER BY position ASC, slug ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		recs = make([]record, 0, 256)
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, &LoadError{Source: s.Name(), Index: -1, Err: describePgError(err)}
	}

	return validateRecords(s.Name(), recs)
}

func scanRecord(rows *sql.Rows) (record, error) {
	var (
		rec         record
		https       sql.NullBool
		latency     sql.NullString
		successRate sql.NullFloat64
		premium     sql.NullBool
		rating      sql.NullInt32
	)

	err := rows.Scan(
		&rec.Name, &rec.Description, &rec.Category, &rec.Auth, &https, &rec.CORS, &rec.Link, &rec.Slug,
		&latency, &successRate, &premium, &rating,
	)
	if err != nil {
		return record{}, err
	}

	if https.Valid {
		v := https.Bool
		rec.HTTPS = &v
	}
	rec.Latency = latency.String
	if successRate.Valid {
		v := successRate.Float64
		rec.SuccessRate = &v
	}
	rec.Premium = premium.Valid && premium.Bool
	if rating.Valid {
		v := int(rating.Int32)
		rec.Rating = &v
	}
	return rec, nil
}

func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUndefinedTable:
		return fmt.Errorf("apis table missing: %w", err)
	case pgUndefinedColumn:
		return fmt.Errorf("apis table has an unexpected schema: %w", err)
	}
	return err
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
