package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blastline/blastline/internal/models"
)

type instanceRepository struct {
	db *sqlx.DB
}

func NewInstanceRepository(db *sqlx.DB) InstanceRepository {
	return &instanceRepository{
		db: db,
	}
}

const instanceColumns = `id, tenant_id, name, status, phone_number, pairing_code, last_active_at, created_at, updated_at`

// GetByID retrieves an instance by id.
func (r *instanceRepository) GetByID(ctx context.Context, id int64) (*models.Instance, error) {
	query := fmt.Sprintf(`SELECT %s FROM instances WHERE id = $1`, instanceColumns)

	var inst models.Instance
	if err := r.db.GetContext(ctx, &inst, query, id); err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return &inst, nil
}

// List retrieves all instances, used to seed the registry at startup.
func (r *instanceRepository) List(ctx context.Context) ([]*models.Instance, error) {
	query := fmt.Sprintf(`SELECT %s FROM instances ORDER BY id`, instanceColumns)

	var instances []*models.Instance
	if err := r.db.SelectContext(ctx, &instances, query); err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	return instances, nil
}

// SetStatus persists a connection status transition.
func (r *instanceRepository) SetStatus(ctx context.Context, id int64, status models.InstanceStatus) error {
	query := `
		UPDATE instances
		SET status = $2,
		    pairing_code = CASE WHEN $2 = 'connecting' THEN pairing_code ELSE NULL END,
		    last_active_at = $3,
		    updated_at = $3
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now()); err != nil {
		return fmt.Errorf("failed to set instance status: %w", err)
	}

	return nil
}

// SetPairingCode persists the pairing credential offered by the provider.
func (r *instanceRepository) SetPairingCode(ctx context.Context, id int64, code string) error {
	query := `UPDATE instances SET pairing_code = $2, updated_at = $3 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, code, time.Now()); err != nil {
		return fmt.Errorf("failed to set pairing code: %w", err)
	}

	return nil
}

// SetIdentity persists the phone identity bound when the session opened.
func (r *instanceRepository) SetIdentity(ctx context.Context, id int64, phoneNumber string) error {
	query := `UPDATE instances SET phone_number = $2, updated_at = $3 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, phoneNumber, time.Now()); err != nil {
		return fmt.Errorf("failed to set instance identity: %w", err)
	}

	return nil
}

// Delete removes the instance record.
func (r *instanceRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM instances WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}

	return nil
}
