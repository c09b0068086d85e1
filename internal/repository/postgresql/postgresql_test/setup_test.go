package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/cmlabs-hris/hris-analytics/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// newTestDatabase connects to TEST_DATABASE_URL and skips the test when it
// is not set
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(context.Background(), dsn, database.PoolConfig{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

// seedTx opens a transaction that is rolled back after the test and returns
// a context carrying it, so repositories read the seeded rows
func seedTx(t *testing.T, db *database.DB) (context.Context, pgx.Tx) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return context.WithValue(ctx, "tx", tx), tx
}

type seed struct {
	companyID  string
	branchID   string
	scheduleID string
}

// seedCompany creates a company, a branch in Asia/Jakarta and a Monday to
// Friday schedule
func seedCompany(t *testing.T, ctx context.Context, tx pgx.Tx) seed {
	t.Helper()
	var s seed

	err := tx.QueryRow(ctx, `
		INSERT INTO companies (id, name, username, created_at, updated_at)
		VALUES (gen_random_uuid(), 'Analytics Test', 'analytics-test-' || gen_random_uuid()::text, NOW(), NOW())
		RETURNING id
	`).Scan(&s.companyID)
	require.NoError(t, err)

	err = tx.QueryRow(ctx, `
		INSERT INTO branches (id, company_id, name, address, timezone, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, 'Head Office', 'Jakarta', 'Asia/Jakarta', NOW(), NOW())
		RETURNING id
	`, s.companyID).Scan(&s.branchID)
	require.NoError(t, err)

	err = tx.QueryRow(ctx, `
		INSERT INTO work_schedules (id, company_id, name, type, grace_period_minutes, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, 'Office Hours', 'WFO', 10, NOW(), NOW())
		RETURNING id
	`, s.companyID).Scan(&s.scheduleID)
	require.NoError(t, err)

	for day := 1; day <= 5; day++ {
		_, err = tx.Exec(ctx, `
			INSERT INTO work_schedule_times (
				work_schedule_id, day_of_week, clock_in_time, break_start_time,
				break_end_time, clock_out_time, is_next_day_checkout, location_type
			) VALUES ($1, $2, '08:00', '12:00', '13:00', '17:00', false, 'WFO')
		`, s.scheduleID, day)
		require.NoError(t, err)
	}

	return s
}

func seedEmployee(t *testing.T, ctx context.Context, tx pgx.Tx, s seed, name, status string) string {
	t.Helper()
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO employees (
			company_id, work_schedule_id, branch_id, employee_code, full_name,
			hire_date, employment_type, employment_status
		) VALUES ($1, $2, $3, 'EMP-' || substr(gen_random_uuid()::text, 1, 8), $4, '2024-01-01', 'permanent', $5)
		RETURNING id
	`, s.companyID, s.scheduleID, s.branchID, name, status).Scan(&id)
	require.NoError(t, err)
	return id
}
