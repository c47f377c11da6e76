package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stirka/internal/models"
)

func (db *DB) CreateMachine(ctx context.Context, name string) (*models.Machine, error) {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO machines (name, status, created_at) VALUES (?, ?, ?)`,
		name, models.MachineAvailable, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create machine: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &models.Machine{
		ID:        id,
		Name:      name,
		Status:    models.MachineAvailable,
		CreatedAt: now,
	}, nil
}

// EnsureMachine идемпотентно создает машину по имени (seed из конфига).
func (db *DB) EnsureMachine(ctx context.Context, name string) error {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM machines WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing machine: %w", err)
	}
	_, err = db.CreateMachine(ctx, name)
	return err
}

func (db *DB) GetMachine(ctx context.Context, id int64) (*models.Machine, error) {
	query := `SELECT m.id, m.name, m.status, m.last_used_by, m.last_used_time, m.created_at
              FROM machines m WHERE m.id = ?`

	var (
		m        models.Machine
		usedBy   sql.NullInt64
		usedTime sql.NullTime
	)
	err := db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.Status, &usedBy, &usedTime, &m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMachineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get machine: %w", err)
	}
	if usedBy.Valid {
		m.LastUsedBy = &usedBy.Int64
	}
	if usedTime.Valid {
		t := usedTime.Time
		m.LastUsedTime = &t
	}
	return &m, nil
}

// ListMachines возвращает все машины по порядку id вместе с именем
// последнего пользователя (LEFT JOIN, поле может быть пустым).
func (db *DB) ListMachines(ctx context.Context) ([]*models.Machine, error) {
	query := `SELECT m.id, m.name, m.status, m.last_used_by, m.last_used_time, m.created_at,
                     COALESCE(u.username, '')
              FROM machines m
              LEFT JOIN users u ON m.last_used_by = u.id
              ORDER BY m.id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer rows.Close()

	var machines []*models.Machine
	for rows.Next() {
		var (
			m        models.Machine
			usedBy   sql.NullInt64
			usedTime sql.NullTime
		)
		err := rows.Scan(&m.ID, &m.Name, &m.Status, &usedBy, &usedTime, &m.CreatedAt, &m.LastUsedByName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		if usedBy.Valid {
			m.LastUsedBy = &usedBy.Int64
		}
		if usedTime.Valid {
			t := usedTime.Time
			m.LastUsedTime = &t
		}
		machines = append(machines, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate machines: %w", err)
	}
	return machines, nil
}

func (db *DB) SetMachineStatus(ctx context.Context, id int64, status string) error {
	if !models.ValidMachineStatus(status) {
		return ErrInvalidStatus
	}

	result, err := db.ExecContext(ctx, `UPDATE machines SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set machine status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrMachineNotFound
	}
	return nil
}
