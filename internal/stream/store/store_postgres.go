package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"incorp/internal/storage"
	"incorp/internal/stream/models"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
)

// Postgres persists streams in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed stream store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Create(ctx context.Context, stream *models.Stream) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO streams (id, company_id, user_id, rate, start_date, total_claimed)
		 VALUES ($1, $2, $3, $4, $5, 0)`,
		stream.ID.String(), stream.CompanyID.String(), stream.UserID.String(),
		stream.Rate, stream.StartDate)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert stream: %w", err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, id domain.StreamID) (*models.Stream, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, company_id, user_id, rate, start_date, total_claimed
		 FROM streams WHERE id = $1`, id.String())
	stream, err := scanStream(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return stream, nil
}

func (p *Postgres) ListByPayee(ctx context.Context, userID domain.UserID) ([]*models.Stream, error) {
	return p.list(ctx,
		`SELECT id, company_id, user_id, rate, start_date, total_claimed
		 FROM streams WHERE user_id = $1 ORDER BY start_date, id`, userID.String())
}

func (p *Postgres) ListByCompany(ctx context.Context, companyID domain.CompanyID) ([]*models.Stream, error) {
	return p.list(ctx,
		`SELECT id, company_id, user_id, rate, start_date, total_claimed
		 FROM streams WHERE company_id = $1 ORDER BY start_date, id`, companyID.String())
}

// AddClaimed advances the claimed counter with a compare-and-swap on its
// current value, so concurrent claimers cannot both bank the same accrual.
func (p *Postgres) AddClaimed(ctx context.Context, id domain.StreamID, expected, delta int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE streams SET total_claimed = total_claimed + $1
		 WHERE id = $2 AND total_claimed = $3`,
		delta, id.String(), expected)
	if err != nil {
		return fmt.Errorf("advance claimed counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance claimed counter: %w", err)
	}
	if affected == 0 {
		if _, findErr := p.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (p *Postgres) list(ctx context.Context, query string, arg any) ([]*models.Stream, error) {
	rows, err := p.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var out []*models.Stream
	for rows.Next() {
		stream, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, stream)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStream(row rowScanner) (*models.Stream, error) {
	var (
		stream       models.Stream
		rawID        string
		rawCompanyID string
		rawUserID    string
	)
	if err := row.Scan(&rawID, &rawCompanyID, &rawUserID, &stream.Rate,
		&stream.StartDate, &stream.TotalClaimed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan stream: %w", err)
	}
	id, err := domain.ParseStreamID(rawID)
	if err != nil {
		return nil, err
	}
	companyID, err := domain.ParseCompanyID(rawCompanyID)
	if err != nil {
		return nil, err
	}
	userID, err := domain.ParseUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	stream.ID = id
	stream.CompanyID = companyID
	stream.UserID = userID
	return &stream, nil
}
