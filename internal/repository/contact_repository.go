package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blastline/blastline/internal/models"
)

type contactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepository{
		db: db,
	}
}

// ListEligible returns the campaign-eligible contact set: active, not
// blacklisted, matching the tag filter when one is set, optionally
// deduplicated by phone number (first created wins).
func (r *contactRepository) ListEligible(ctx context.Context, tenantID int64, tagFilter []string, dedup bool) ([]*models.Contact, error) {
	base := `
		SELECT id, tenant_id, phone_number, name, tags, blacklisted, active, created_at, updated_at
		FROM contacts
		WHERE tenant_id = $1
		  AND active = TRUE
		  AND blacklisted = FALSE
		  AND (cardinality($2::text[]) = 0 OR tags && $2::text[])
	`

	var query string
	if dedup {
		query = fmt.Sprintf(`
			SELECT DISTINCT ON (phone_number) * FROM (%s) AS eligible
			ORDER BY phone_number, id
		`, base)
	} else {
		query = base + ` ORDER BY id`
	}

	if tagFilter == nil {
		tagFilter = []string{}
	}

	var contacts []*models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, tenantID, pq.Array(tagFilter)); err != nil {
		return nil, fmt.Errorf("failed to list eligible contacts: %w", err)
	}

	return contacts, nil
}
