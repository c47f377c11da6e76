package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stirka/internal/models"
)

// CreateBookingSlot проводит допуск и вставку одной транзакцией:
// проверка статуса машины, валидность интервала, пересечения слотов и
// лимит частоты выполняются на тех же строках, в которые пишем.
// Никакая частичная запись при отказе не остается.
//
// now передается снаружи: скользящее окно лимита привязано к моменту
// оценки, и тесты управляют часами.
func (db *DB) CreateBookingSlot(ctx context.Context, booking *models.Booking, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Машина существует и доступна. Ворота статуса независимы от
	// проверок времени: сломанная машина отклоняет любой слот.
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM machines WHERE id = ?`, booking.MachineID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMachineNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check machine status: %w", err)
	}
	if status != models.MachineAvailable {
		return ErrMachineUnavailable
	}

	// 2. Валидность интервала
	if !booking.EndTime.After(booking.StartTime) {
		return ErrInvalidInterval
	}

	startStr := formatTime(booking.StartTime)
	endStr := formatTime(booking.EndTime)

	// 3. Пересечение с активными бронированиями той же машины.
	// Полуоткрытые интервалы [s,e): слот, начинающийся ровно в момент
	// окончания другого, конфликтом не считается.
	var conflicts int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
         WHERE machine_id = ? AND status IN (?, ?)
         AND (
             (start_time <= ? AND end_time > ?) OR
             (start_time < ? AND end_time >= ?) OR
             (start_time >= ? AND end_time <= ?)
         )`,
		booking.MachineID, models.StatusPending, models.StatusConfirmed,
		startStr, startStr, endStr, endStr, startStr, endStr,
	).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("failed to check slot conflicts: %w", err)
	}
	if conflicts > 0 {
		return ErrSlotConflict
	}

	// 4. Лимит частоты: не более одного активного бронирования со стартом
	// в окне [now, now+10d). Окно скользящее, без календарных границ.
	// Кандидат со стартом за пределами окна лимитом не ограничен: он не
	// добавляет бронирование в окно.
	windowEnd := now.AddDate(0, 0, models.RateLimitWindowDays)
	if booking.StartTime.Before(windowEnd) {
		var upcoming int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings
             WHERE user_id = ? AND status IN (?, ?)
             AND start_time >= ? AND start_time < ?`,
			booking.UserID, models.StatusPending, models.StatusConfirmed,
			formatTime(now), formatTime(windowEnd),
		).Scan(&upcoming)
		if err != nil {
			return fmt.Errorf("failed to check rate limit: %w", err)
		}
		if upcoming >= models.RateLimitMaxActive {
			return ErrRateLimited
		}
	}

	// 5. Допущено — вставляем сразу со статусом confirmed
	createdAt := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, machine_id, start_time, end_time, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		booking.UserID, booking.MachineID, startStr, endStr, models.StatusConfirmed, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	// Трекинг последнего пользователя машины
	_, err = tx.ExecContext(ctx,
		`UPDATE machines SET last_used_by = ?, last_used_time = ? WHERE id = ?`,
		booking.UserID, createdAt, booking.MachineID,
	)
	if err != nil {
		return fmt.Errorf("failed to update machine usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.Status = models.StatusConfirmed
	booking.CreatedAt = createdAt
	return nil
}

// CancelBooking переводит бронирование владельца в cancelled.
// Несовпадение владельца неотличимо от отсутствия записи — это и есть
// проверка авторизации отмены. Повторная отмена идемпотентна.
func (db *DB) CancelBooking(ctx context.Context, bookingID, userID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM bookings WHERE id = ? AND user_id = ?`,
		bookingID, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}

	switch status {
	case models.StatusCompleted:
		return ErrInvalidState
	case models.StatusCancelled:
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, models.StatusCancelled, bookingID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT b.id, b.user_id, b.machine_id, b.start_time, b.end_time,
                     b.status, b.created_at, m.name
              FROM bookings b
              JOIN machines m ON b.machine_id = m.id
              WHERE b.id = ?`

	var (
		b                models.Booking
		startStr, endStr string
	)
	err := db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.UserID, &b.MachineID, &startStr, &endStr,
		&b.Status, &b.CreatedAt, &b.MachineName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b.StartTime, err = parseTime(startStr); err != nil {
		return nil, err
	}
	if b.EndTime, err = parseTime(endStr); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListUserBookings возвращает бронирования пользователя, новые сверху.
func (db *DB) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT b.id, b.user_id, b.machine_id, b.start_time, b.end_time,
                     b.status, b.created_at, m.name, '', ''
              FROM bookings b
              JOIN machines m ON b.machine_id = m.id
              WHERE b.user_id = ?
              ORDER BY b.start_time DESC`
	return db.queryBookings(ctx, query, userID)
}

// ListMachineBookings возвращает активное расписание машины по возрастанию времени.
func (db *DB) ListMachineBookings(ctx context.Context, machineID int64) ([]*models.Booking, error) {
	var exists int64
	err := db.QueryRowContext(ctx, `SELECT id FROM machines WHERE id = ?`, machineID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMachineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check machine: %w", err)
	}

	query := `SELECT b.id, b.user_id, b.machine_id, b.start_time, b.end_time,
                     b.status, b.created_at, m.name, u.username, u.student_id
              FROM bookings b
              JOIN machines m ON b.machine_id = m.id
              JOIN users u ON b.user_id = u.id
              WHERE b.machine_id = ? AND b.status IN (?, ?)
              ORDER BY b.start_time ASC`
	return db.queryBookings(ctx, query, machineID, models.StatusPending, models.StatusConfirmed)
}

// ListAllBookings возвращает все бронирования для админского обзора.
func (db *DB) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT b.id, b.user_id, b.machine_id, b.start_time, b.end_time,
                     b.status, b.created_at, m.name, u.username, u.student_id
              FROM bookings b
              JOIN machines m ON b.machine_id = m.id
              JOIN users u ON b.user_id = u.id
              ORDER BY b.start_time DESC`
	return db.queryBookings(ctx, query)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		var startStr, endStr string
		err := rows.Scan(
			&b.ID, &b.UserID, &b.MachineID, &startStr, &endStr,
			&b.Status, &b.CreatedAt, &b.MachineName, &b.Username, &b.StudentID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		if b.StartTime, err = parseTime(startStr); err != nil {
			return nil, err
		}
		if b.EndTime, err = parseTime(endStr); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}
