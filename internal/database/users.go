package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stirka/internal/models"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	// Предварительная проверка сохраняет типизированную ошибку даже без
	// разбора кодов constraint-ов драйвера; UNIQUE в схеме остается страховкой.
	var existing int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE student_id = ?`, user.StudentID).Scan(&existing)
	if err == nil {
		return ErrDuplicateStudentID
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (student_id, username, password_hash, email, role, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		user.StudentID, user.Username, user.PasswordHash, nullString(user.Email), string(user.Role), now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	return nil
}

// GetUserByStudentID ищет пользователя в пределах одной роли.
// Разделение ролей гарантирует, что admin не войдет через пользовательский путь.
func (db *DB) GetUserByStudentID(ctx context.Context, studentID string, role models.Role) (*models.User, error) {
	query := `SELECT id, student_id, username, password_hash, email, role, created_at
              FROM users WHERE student_id = ? AND role = ?`
	return db.queryUser(ctx, query, studentID, string(role))
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, student_id, username, password_hash, email, role, created_at
              FROM users WHERE id = ?`
	return db.queryUser(ctx, query, id)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var (
		user  models.User
		email sql.NullString
		role  string
	)
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.StudentID, &user.Username, &user.PasswordHash, &email, &role, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	user.Email = email.String
	user.Role = models.Role(role)
	return &user, nil
}

// UpdateUserEmail дозаполняет email пользователя (federated login backfill).
func (db *DB) UpdateUserEmail(ctx context.Context, id int64, email string) error {
	_, err := db.ExecContext(ctx, `UPDATE users SET email = ? WHERE id = ?`, email, id)
	if err != nil {
		return fmt.Errorf("failed to update user email: %w", err)
	}
	return nil
}

// EnsureUser идемпотентно создает учетную запись при старте (seed).
func (db *DB) EnsureUser(ctx context.Context, user *models.User) error {
	err := db.CreateUser(ctx, user)
	if errors.Is(err, ErrDuplicateStudentID) {
		return nil
	}
	return err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
