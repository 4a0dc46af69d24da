package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"incorp/internal/company/models"
	"incorp/internal/storage"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
)

// Postgres persists companies and their cap tables in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed company store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Create(ctx context.Context, company *models.Company) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO companies (id, handle, name, description, email, director, total_shares, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7)`,
		company.ID.String(), company.Handle.String(), company.Name, company.Description,
		company.Email, company.Director, company.CreatedAt)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, id domain.CompanyID) (*models.Company, error) {
	return p.scanCompany(p.db.QueryRowContext(ctx,
		`SELECT id, handle, name, description, email, director, total_shares, created_at
		 FROM companies WHERE id = $1`, id.String()))
}

func (p *Postgres) FindByHandle(ctx context.Context, handle domain.Handle) (*models.Company, error) {
	return p.scanCompany(p.db.QueryRowContext(ctx,
		`SELECT id, handle, name, description, email, director, total_shares, created_at
		 FROM companies WHERE handle = $1`, handle.String()))
}

func (p *Postgres) List(ctx context.Context) ([]*models.Company, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, handle, name, description, email, director, total_shares, created_at
		 FROM companies ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []*models.Company
	for rows.Next() {
		c, err := p.scanCompanyRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) IssueCapTable(ctx context.Context, id domain.CompanyID, totalShares int64, holders []*models.Shareholder) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issuance tx: %w", err)
	}
	defer tx.Rollback()

	// total_shares = 0 in the predicate makes issuance one-time even under
	// concurrent callers.
	res, err := tx.ExecContext(ctx,
		`UPDATE companies SET total_shares = $1 WHERE id = $2 AND total_shares = 0`,
		totalShares, id.String())
	if err != nil {
		return fmt.Errorf("set total shares: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set total shares: %w", err)
	}
	if affected == 0 {
		if _, findErr := p.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}

	for _, h := range holders {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shareholders (company_id, email, shares, funded) VALUES ($1, $2, $3, FALSE)`,
			id.String(), h.Email, h.Shares); err != nil {
			return fmt.Errorf("insert shareholder %s: %w", h.Email, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit issuance tx: %w", err)
	}
	return nil
}

func (p *Postgres) Shareholders(ctx context.Context, id domain.CompanyID) ([]*models.Shareholder, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT company_id, email, shares, funded FROM shareholders
		 WHERE company_id = $1 ORDER BY email`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list shareholders: %w", err)
	}
	defer rows.Close()
	return scanShareholders(rows)
}

func (p *Postgres) FindShareholder(ctx context.Context, id domain.CompanyID, email string) (*models.Shareholder, error) {
	var (
		h     models.Shareholder
		rawID string
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT company_id, email, shares, funded FROM shareholders
		 WHERE company_id = $1 AND email = $2`, id.String(), email).
		Scan(&rawID, &h.Email, &h.Shares, &h.Funded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find shareholder: %w", err)
	}
	h.CompanyID, err = domain.ParseCompanyID(rawID)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (p *Postgres) MarkFunded(ctx context.Context, id domain.CompanyID, email string) (bool, error) {
	// funded = FALSE in the predicate makes the flip idempotent: a repeat
	// call matches zero rows.
	res, err := p.db.ExecContext(ctx,
		`UPDATE shareholders SET funded = TRUE
		 WHERE company_id = $1 AND email = $2 AND funded = FALSE`,
		id.String(), email)
	if err != nil {
		return false, fmt.Errorf("mark funded: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark funded: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	if _, err := p.FindShareholder(ctx, id, email); err != nil {
		return false, err
	}
	return false, nil
}

func (p *Postgres) ListUnfunded(ctx context.Context) ([]*models.Shareholder, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT company_id, email, shares, funded FROM shareholders
		 WHERE funded = FALSE ORDER BY company_id, email`)
	if err != nil {
		return nil, fmt.Errorf("list unfunded shareholders: %w", err)
	}
	defer rows.Close()
	return scanShareholders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *Postgres) scanCompany(row *sql.Row) (*models.Company, error) {
	c, err := p.scanCompanyRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (p *Postgres) scanCompanyRow(row rowScanner) (*models.Company, error) {
	var (
		c         models.Company
		rawID     string
		rawHandle string
	)
	if err := row.Scan(&rawID, &rawHandle, &c.Name, &c.Description, &c.Email,
		&c.Director, &c.TotalShares, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan company: %w", err)
	}
	id, err := domain.ParseCompanyID(rawID)
	if err != nil {
		return nil, err
	}
	handle, err := domain.ParseHandle(rawHandle)
	if err != nil {
		return nil, err
	}
	c.ID = id
	c.Handle = handle
	return &c, nil
}

func scanShareholders(rows *sql.Rows) ([]*models.Shareholder, error) {
	var out []*models.Shareholder
	for rows.Next() {
		var (
			h     models.Shareholder
			rawID string
		)
		if err := rows.Scan(&rawID, &h.Email, &h.Shares, &h.Funded); err != nil {
			return nil, fmt.Errorf("scan shareholder: %w", err)
		}
		id, err := domain.ParseCompanyID(rawID)
		if err != nil {
			return nil, err
		}
		h.CompanyID = id
		out = append(out, &h)
	}
	return out, rows.Err()
}
