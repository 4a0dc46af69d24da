package store

import (
	"context"
	"database/sql"
	"fmt"

	"incorp/internal/payment/models"
	"incorp/internal/storage"
	"incorp/pkg/domain"
	"incorp/pkg/platform/sentinel"
)

// Postgres persists the payment ledger in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed payment store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Append(ctx context.Context, payment *models.Payment) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO payments (id, company_origin, company_destination, amount, type, description, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		payment.ID.String(), payment.Origin, payment.Destination, payment.Amount,
		string(payment.Type), payment.Description, payment.Reference, payment.CreatedAt)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("append payment: %w", err)
	}
	return nil
}

func (p *Postgres) ListByParty(ctx context.Context, party string) ([]*models.Payment, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, company_origin, company_destination, amount, type, description, reference, created_at
		 FROM payments
		 WHERE company_origin = $1 OR company_destination = $1
		 ORDER BY created_at DESC`, party)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		var (
			payment     models.Payment
			rawID       string
			paymentType string
		)
		if err := rows.Scan(&rawID, &payment.Origin, &payment.Destination, &payment.Amount,
			&paymentType, &payment.Description, &payment.Reference, &payment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		id, err := domain.ParsePaymentID(rawID)
		if err != nil {
			return nil, err
		}
		payment.ID = id
		payment.Type = models.Type(paymentType)
		out = append(out, &payment)
	}
	return out, rows.Err()
}

func (p *Postgres) HasReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE reference = $1)`, reference).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check payment reference: %w", err)
	}
	return exists, nil
}
