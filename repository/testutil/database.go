package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"blocklucky/database"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// lotteryTables lists every table the migrations create, children first
var lotteryTables = []string{
	"lottery_events",
	"balance_history",
	"lottery_entries",
	"lotteries",
	"accounts",
}

// TestDatabase is a migrated PostgreSQL container shared by the subtests of
// one repository test
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *database.DB
	URL       string
}

// SetupTestDatabase starts a PostgreSQL container, applies every migration
// and opens a pool on it. Skipped with -short since it needs Docker.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	ctx := context.Background()

	// Label containers per test so leaked ones can be traced and reaped
	labels := map[string]string{
		"test":      "blocklucky-repository",
		"test-name": t.Name(),
		"timestamp": time.Now().Format("20060102-150405"),
		"cleanup":   "auto",
	}

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("blocklucky_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(labels),
	)
	require.NoError(t, err)

	// Register cleanup before anything else can fail
	testDB := &TestDatabase{
		Container: postgresContainer,
	}
	t.Cleanup(func() {
		testDB.robustCleanup(t)
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Migrate before opening the pool so no connection caches the old schema
	require.NoError(t, database.RunMigrationsWithURL(connStr))

	version, dirty, err := database.MigrateStatus(connStr)
	require.NoError(t, err)
	require.False(t, dirty, "migrations left the schema dirty at version %d", version)

	db, err := database.NewConnection(ctx, connStr, database.WithMaxConns(4))
	require.NoError(t, err)

	testDB.DB = db
	testDB.URL = connStr

	return testDB
}

// Truncate empties every lottery table and restarts the id sequences, so
// each subtest sees lottery ID 1 again
func (td *TestDatabase) Truncate(t *testing.T) {
	t.Helper()
	err := td.DB.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		_, err := tx.Exec(context.Background(),
			`TRUNCATE `+strings.Join(lotteryTables, ", ")+` RESTART IDENTITY CASCADE`)
		return err
	})
	require.NoError(t, err)
}

// robustCleanup closes the pool and terminates the container, recovering
// from panics so a broken container never fails the test itself
func (td *TestDatabase) robustCleanup(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Logf("Panic during container cleanup (recovered): %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Closing the pool is best effort
	if td.DB != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Logf("Panic closing database connection (recovered): %v", r)
				}
			}()
			td.DB.Close()
		}()
	}

	if td.Container != nil {
		if err := td.Container.Terminate(ctx); err != nil {
			// Cleanup errors are logged, not fatal
			t.Logf("Warning: Failed to terminate test container: %v", err)
		} else {
			t.Logf("Successfully cleaned up test container")
		}
	}
}
