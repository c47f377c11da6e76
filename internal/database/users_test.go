package database

import (
	"context"
	"testing"

	"stirka/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := &models.User{
		StudentID:    "21ucs001",
		Username:     "Alice",
		PasswordHash: "hash",
		Role:         models.RoleUser,
	}
	require.NoError(t, db.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	dup := &models.User{StudentID: "21ucs001", Username: "Other", PasswordHash: "hash", Role: models.RoleUser}
	assert.ErrorIs(t, db.CreateUser(ctx, dup), ErrDuplicateStudentID)
}

func TestGetUserByStudentID_RolePartition(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	admin := &models.User{StudentID: "admin", Username: "Administrator", PasswordHash: "hash", Role: models.RoleAdmin}
	require.NoError(t, db.CreateUser(ctx, admin))

	// Админ не находится через пользовательский путь
	_, err := db.GetUserByStudentID(ctx, "admin", models.RoleUser)
	assert.ErrorIs(t, err, ErrUserNotFound)

	found, err := db.GetUserByStudentID(ctx, "admin", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, found.Role)
}

func TestGetUserByID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := &models.User{StudentID: "S1", Username: "Alice", PasswordHash: "hash", Email: "s1@example.com", Role: models.RoleUser}
	require.NoError(t, db.CreateUser(ctx, user))

	found, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.Username)
	assert.Equal(t, "s1@example.com", found.Email)

	_, err = db.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUserEmail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := &models.User{StudentID: "S1", Username: "Alice", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, db.CreateUser(ctx, user))

	require.NoError(t, db.UpdateUserEmail(ctx, user.ID, "s1@lnmiit.ac.in"))

	found, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "s1@lnmiit.ac.in", found.Email)
}

func TestEnsureUser_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := &models.User{StudentID: "admin", Username: "Administrator", PasswordHash: "hash", Role: models.RoleAdmin}
	require.NoError(t, db.EnsureUser(ctx, user))
	require.NoError(t, db.EnsureUser(ctx, &models.User{StudentID: "admin", Username: "Administrator", PasswordHash: "other", Role: models.RoleAdmin}))

	// Повторный seed не перезаписывает существующую запись
	found, err := db.GetUserByStudentID(ctx, "admin", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "hash", found.PasswordHash)
}
