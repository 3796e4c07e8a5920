package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
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

func TestUserStoreRoleOf(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT "id","role" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(id.String(), "technician"))

	role, err := store.RoleOf(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "technician", role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreRoleOfMissingProfile(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)

	mock.ExpectQuery(`SELECT "id","role" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}))

	_, err := store.RoleOf(context.Background(), uuid.New())
	assert.ErrorIs(t, err, roles.ErrProfileNotFound)
}

func TestUserStoreRoleOfQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)

	mock.ExpectQuery(`SELECT "id","role" FROM "users"`).WillReturnError(errors.New("connection refused"))

	_, err := store.RoleOf(context.Background(), uuid.New())
	require.Error(t, err)
	assert.False(t, errors.Is(err, roles.ErrProfileNotFound))
}

func TestUserStoreSessionVersion(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT "id","session_version" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_version"}).AddRow(id.String(), 4))
	mock.ExpectQuery(`SELECT "id","session_version" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_version"}))

	v, err := store.SessionVersion(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	_, err = store.SessionVersion(context.Background(), uuid.New())
	assert.ErrorIs(t, err, session.ErrUnknownUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreAssignableFiltersRoles(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE role IN \(\$1,\$2\)`).
		WithArgs("user", "technician").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role"}).
			AddRow(uuid.NewString(), "t@example.com", "technician"))

	users, err := store.Assignable(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "technician", users[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreUpdateMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.Update(context.Background(), uuid.New(), map[string]interface{}{"display_name": "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
