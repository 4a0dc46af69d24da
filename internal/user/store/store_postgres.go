package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"incorp/internal/user/models"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
)

// Postgres persists user profiles in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) CreateOrGet(ctx context.Context, id domain.UserID) (*models.Profile, error) {
	var profile models.Profile
	var rawID string
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO user_profiles (id, kyc_verified) VALUES ($1, FALSE)
		 ON CONFLICT (id) DO UPDATE SET id = user_profiles.id
		 RETURNING id, kyc_verified`, id.String()).
		Scan(&rawID, &profile.KYCVerified)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	profile.ID = id
	return &profile, nil
}

func (p *Postgres) Find(ctx context.Context, id domain.UserID) (*models.Profile, error) {
	var profile models.Profile
	var rawID string
	err := p.db.QueryRowContext(ctx,
		`SELECT id, kyc_verified FROM user_profiles WHERE id = $1`, id.String()).
		Scan(&rawID, &profile.KYCVerified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	profile.ID = id
	return &profile, nil
}

func (p *Postgres) SetVerified(ctx context.Context, id domain.UserID) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO user_profiles (id, kyc_verified) VALUES ($1, TRUE)
		 ON CONFLICT (id) DO UPDATE SET kyc_verified = TRUE
		 WHERE user_profiles.kyc_verified = FALSE`, id.String())
	if err != nil {
		return false, fmt.Errorf("set verified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set verified: %w", err)
	}
	return affected > 0, nil
}

func (p *Postgres) ListUnverified(ctx context.Context) ([]domain.UserID, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id FROM user_profiles WHERE kyc_verified = FALSE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list unverified profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.UserID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan profile id: %w", err)
		}
		id, err := domain.ParseUserID(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
