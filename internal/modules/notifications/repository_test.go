package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestMarkReadIgnoresExistingReceipt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "notification_receipts" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.MarkRead(context.Background(), uuid.New(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForQueriesBothAddressingModes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	self := uuid.New()
	readAt := time.Now()

	mock.ExpectQuery(`LEFT JOIN notification_receipts AS nr .* AND \(n.recipient_id = \$2 OR \$3 = ANY\(n.target_roles\)\)`).
		WithArgs(self, self, "technician").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "message", "read_at"}).
			AddRow(uuid.NewString(), "a", "m", readAt).
			AddRow(uuid.NewString(), "b", "m", nil))

	views, err := repo.ListFor(context.Background(), access.RoleTechnician, self)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].Read)
	assert.False(t, views[1].Read)
	assert.NoError(t, mock.ExpectationsWereMet())
}
