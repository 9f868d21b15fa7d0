package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/photolab/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newMockGorm opens GORM on a sqlmock connection speaking the postgres dialect
func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ProviderSettingsModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.SubmissionModel{},
	)
	require.NoError(t, err)

	return db
}

func TestDatabase_PingAndClose(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{})
	require.NoError(t, err)
	db := NewDatabaseFromGorm(gormDB)

	mock.ExpectPing()
	assert.NoError(t, db.Ping())

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	gormDB, _, mockDB := newMockGorm(t)
	defer mockDB.Close()

	stats, err := NewDatabaseFromGorm(gormDB).Stats()
	require.NoError(t, err)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
}

func TestDatabase_WithStudio(t *testing.T) {
	gormDB, _, mockDB := newMockGorm(t)
	defer mockDB.Close()
	db := NewDatabaseFromGorm(gormDB)

	assert.Panics(t, func() { db.WithStudio(uuid.Nil) })
	assert.NotNil(t, db.WithStudio(uuid.New()))
}

func TestPaginate(t *testing.T) {
	db := setupSQLiteDB(t)

	tests := []struct {
		name       string
		page, size int
		wantSQL    string
	}{
		{"first page", 1, 10, "LIMIT 10"},
		{"offset", 3, 10, "LIMIT 10 OFFSET 20"},
		{"defaults page size", 0, 0, "LIMIT 20"},
		{"caps page size", 1, 1000, "LIMIT 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				var rows []models.SubmissionModel
				return tx.Scopes(Paginate(tt.page, tt.size)).Find(&rows)
			})
			assert.Contains(t, sql, tt.wantSQL)
		})
	}
}
