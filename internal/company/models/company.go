// Package models holds the company aggregate and its cap table rows.
package models

import (
	"strings"
	"time"

	"incorp/contracts/registry"
	"incorp/pkg/domain"

	dErrors "incorp/pkg/domain-errors"
)

// Company is the off-chain index row for an incorporated company.
//
// Invariants:
//   - Handle is unique and immutable after creation
//   - TotalShares is zero until issuance, then fixed forever
//   - CreatedAt is immutable after construction
//
// The on-chain registry record is the source of truth for the company's
// existence and balance; this row exists for queries and joins.
type Company struct {
	ID          domain.CompanyID `json:"id"`
	Handle      domain.Handle    `json:"handle"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Email       string           `json:"email"`
	Director    string           `json:"director"`
	TotalShares int64            `json:"total_shares"`
	CreatedAt   time.Time        `json:"created_at"`
}

// RegistryRecord converts the row to its on-chain registry form.
func (c *Company) RegistryRecord() registry.CompanyRecord {
	return registry.CompanyRecord{
		Name:        c.Name,
		Handle:      c.Handle.String(),
		Email:       c.Email,
		Director:    c.Director,
		TotalShares: c.TotalShares,
	}
}

// Issued reports whether the cap table has been fixed.
func (c *Company) Issued() bool {
	return c.TotalShares > 0
}

// NewCompany validates and constructs a company row.
func NewCompany(handle domain.Handle, name, description, email, director string, now time.Time) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company name cannot be empty")
	}
	if len(name) > 255 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company name must be 255 characters or less")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "company email cannot be empty")
	}
	return &Company{
		ID:          domain.NewCompanyID(),
		Handle:      handle,
		Name:        name,
		Description: strings.TrimSpace(description),
		Email:       email,
		Director:    director,
		CreatedAt:   now,
	}, nil
}

// Shareholder is one cap table entry. The composite key is
// (CompanyID, Email). Shares is fixed at issuance; Funded flips to true
// exactly once, after chain confirmation.
type Shareholder struct {
	CompanyID domain.CompanyID `json:"company_id"`
	Email     string           `json:"email"`
	Shares    int64            `json:"shares"`
	Funded    bool             `json:"funded"`
}
