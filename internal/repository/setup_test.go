package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/blastline/blastline/internal/models"
)

func setupTestDB(t *testing.T) (*sqlx.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)

	err = applyMigrations(db)
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func applyMigrations(db *sqlx.DB) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

func cleanupTestData(db *sqlx.DB) {
	_, _ = db.Exec("TRUNCATE TABLE campaign_messages, campaigns, contacts, instances RESTART IDENTITY CASCADE")
}

func insertTestInstance(t *testing.T, db *sqlx.DB, tenantID int64, status models.InstanceStatus) int64 {
	var id int64
	err := db.QueryRow(`
		INSERT INTO instances (tenant_id, name, status)
		VALUES ($1, 'test instance', $2)
		RETURNING id
	`, tenantID, status).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertTestContact(t *testing.T, db *sqlx.DB, tenantID int64, phone, name string, tags []string, blacklisted, active bool) int64 {
	var id int64
	err := db.QueryRow(`
		INSERT INTO contacts (tenant_id, phone_number, name, tags, blacklisted, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, tenantID, phone, name, pq.Array(tags), blacklisted, active).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertTestCampaign(t *testing.T, db *sqlx.DB, tenantID int64, status models.CampaignStatus) int64 {
	var id int64
	err := db.QueryRow(`
		INSERT INTO campaigns (tenant_id, name, template, status, instance_ids)
		VALUES ($1, 'test campaign', 'Hi {{name}}', $2, '{1}')
		RETURNING id
	`, tenantID, status).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertTestMessage(t *testing.T, db *sqlx.DB, campaignID, contactID int64, status models.MessageStatus, nextAttemptAt time.Time) int64 {
	var id int64
	err := db.QueryRow(`
		INSERT INTO campaign_messages
			(campaign_id, contact_id, phone_number, contact_name, content,
			 status, max_attempts, next_attempt_at)
		VALUES ($1, $2, '+15550000', 'Name', 'Body', $3, 3, $4)
		RETURNING id
	`, campaignID, contactID, status, nextAttemptAt).Scan(&id)
	require.NoError(t, err)
	return id
}

func messageStatus(t *testing.T, db *sqlx.DB, id int64) models.MessageStatus {
	var status models.MessageStatus
	require.NoError(t, db.QueryRow(`SELECT status FROM campaign_messages WHERE id = $1`, id).Scan(&status))
	return status
}

func campaignCounters(t *testing.T, db *sqlx.DB, id int64) (total, sent, delivered, failed, pending int) {
	err := db.QueryRow(`
		SELECT total, sent, delivered, failed, pending FROM campaigns WHERE id = $1
	`, id).Scan(&total, &sent, &delivered, &failed, &pending)
	require.NoError(t, err)
	return
}

func setProviderMessageID(t *testing.T, db *sqlx.DB, id int64, providerMessageID string) {
	_, err := db.Exec(`UPDATE campaign_messages SET provider_message_id = $2 WHERE id = $1`, id, providerMessageID)
	require.NoError(t, err)
}

func scanNullString(t *testing.T, db *sqlx.DB, query string, args ...interface{}) sql.NullString {
	var v sql.NullString
	require.NoError(t, db.QueryRow(query, args...).Scan(&v))
	return v
}
