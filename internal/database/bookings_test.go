package database

import (
	"context"
	"testing"
	"time"

	"stirka/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedUserAndMachine создает пользователя и машину для тестов бронирования.
func seedUserAndMachine(t *testing.T, db *DB, studentID string) (userID, machineID int64) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{
		StudentID:    studentID,
		Username:     "Test User",
		PasswordHash: "hash",
		Role:         models.RoleUser,
	}
	require.NoError(t, db.CreateUser(ctx, user))

	machine, err := db.CreateMachine(ctx, "Machine "+studentID)
	require.NoError(t, err)

	return user.ID, machine.ID
}

func slot(day, hour, minute int) time.Time {
	return time.Date(2026, 9, day, hour, minute, 0, 0, time.UTC)
}

func TestCreateBookingSlot_Admitted(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")
	now := slot(1, 8, 0)

	booking := &models.Booking{
		UserID:    userID,
		MachineID: machineID,
		StartTime: slot(1, 10, 0),
		EndTime:   slot(1, 11, 0),
	}
	err := db.CreateBookingSlot(ctx, booking, now)
	require.NoError(t, err)

	assert.NotZero(t, booking.ID)
	assert.Equal(t, models.StatusConfirmed, booking.Status)

	stored, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartTime.Equal(slot(1, 10, 0)))
	assert.True(t, stored.EndTime.Equal(slot(1, 11, 0)))
}

func TestCreateBookingSlot_AdjacentSlotsDoNotConflict(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	aliceID, machineID := seedUserAndMachine(t, db, "S1")
	bob := &models.User{StudentID: "S2", Username: "Bob", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, db.CreateUser(ctx, bob))

	now := slot(1, 8, 0)

	first := &models.Booking{UserID: aliceID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, first, now))

	// [11:00, 12:00) начинается ровно в момент окончания [10:00, 11:00)
	second := &models.Booking{UserID: bob.ID, MachineID: machineID, StartTime: slot(1, 11, 0), EndTime: slot(1, 12, 0)}
	assert.NoError(t, db.CreateBookingSlot(ctx, second, now))
}

func TestCreateBookingSlot_OverlapConflicts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	aliceID, machineID := seedUserAndMachine(t, db, "S1")
	bob := &models.User{StudentID: "S2", Username: "Bob", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, db.CreateUser(ctx, bob))

	now := slot(1, 8, 0)

	first := &models.Booking{UserID: aliceID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, first, now))

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"overlaps start", slot(1, 9, 30), slot(1, 10, 30)},
		{"overlaps end", slot(1, 10, 59), slot(1, 11, 30)},
		{"contained", slot(1, 10, 15), slot(1, 10, 45)},
		{"contains", slot(1, 9, 0), slot(1, 12, 0)},
		{"exact match", slot(1, 10, 0), slot(1, 11, 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &models.Booking{UserID: bob.ID, MachineID: machineID, StartTime: tc.start, EndTime: tc.end}
			err := db.CreateBookingSlot(ctx, b, now)
			assert.ErrorIs(t, err, ErrSlotConflict)
		})
	}
}

func TestCreateBookingSlot_ConflictOnlySameMachine(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	aliceID, machineID := seedUserAndMachine(t, db, "S1")
	bob := &models.User{StudentID: "S2", Username: "Bob", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, db.CreateUser(ctx, bob))
	other, err := db.CreateMachine(ctx, "Machine B")
	require.NoError(t, err)

	now := slot(1, 8, 0)

	first := &models.Booking{UserID: aliceID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, first, now))

	// Тот же слот на другой машине не конфликтует
	second := &models.Booking{UserID: bob.ID, MachineID: other.ID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	assert.NoError(t, db.CreateBookingSlot(ctx, second, now))
}

func TestCreateBookingSlot_CancelledBookingFreesSlot(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	aliceID, machineID := seedUserAndMachine(t, db, "S1")
	bob := &models.User{StudentID: "S2", Username: "Bob", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, db.CreateUser(ctx, bob))

	now := slot(1, 8, 0)

	first := &models.Booking{UserID: aliceID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, first, now))
	require.NoError(t, db.CancelBooking(ctx, first.ID, aliceID))

	second := &models.Booking{UserID: bob.ID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	assert.NoError(t, db.CreateBookingSlot(ctx, second, now))
}

func TestCreateBookingSlot_InvalidInterval(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")
	now := slot(1, 8, 0)

	zeroLength := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 10, 0)}
	assert.ErrorIs(t, db.CreateBookingSlot(ctx, zeroLength, now), ErrInvalidInterval)

	reversed := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(1, 11, 0), EndTime: slot(1, 10, 0)}
	assert.ErrorIs(t, db.CreateBookingSlot(ctx, reversed, now), ErrInvalidInterval)
}

func TestCreateBookingSlot_MachineGate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")
	now := slot(1, 8, 0)

	b := &models.Booking{UserID: userID, MachineID: 999, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	assert.ErrorIs(t, db.CreateBookingSlot(ctx, b, now), ErrMachineNotFound)

	require.NoError(t, db.SetMachineStatus(ctx, machineID, models.MachineBroken))
	b = &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	assert.ErrorIs(t, db.CreateBookingSlot(ctx, b, now), ErrMachineUnavailable)

	require.NoError(t, db.SetMachineStatus(ctx, machineID, models.MachineInUse))
	assert.ErrorIs(t, db.CreateBookingSlot(ctx, b, now), ErrMachineUnavailable)

	// Починили — слот проходит
	require.NoError(t, db.SetMachineStatus(ctx, machineID, models.MachineAvailable))
	assert.NoError(t, db.CreateBookingSlot(ctx, b, now))
}

func TestCreateBookingSlot_RateLimitWindow(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")
	now := slot(1, 8, 0)

	first := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(2, 10, 0), EndTime: slot(2, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, first, now))

	// Второй слот в пределах десяти дней от now отклоняется,
	// даже на другой машине и в другое время
	other, err := db.CreateMachine(ctx, "Machine B")
	require.NoError(t, err)
	second := &models.Booking{UserID: userID, MachineID: other.ID, StartTime: slot(5, 10, 0), EndTime: slot(5, 11, 0)}
	assert.ErrorIs(t, db.CreateBookingSlot(ctx, second, now), ErrRateLimited)

	// Кандидат со стартом за пределами окна (13-е против окна [1, 11))
	// не добавляет бронирование в окно и проходит
	outside := &models.Booking{UserID: userID, MachineID: other.ID, StartTime: slot(13, 10, 0), EndTime: slot(13, 11, 0)}
	assert.NoError(t, db.CreateBookingSlot(ctx, outside, now))

	// Когда окно оценки уезжает за первое бронирование, лимит отпускает,
	// хотя бронирование от 13-го теперь в окне
	inWindow := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(13, 12, 0), EndTime: slot(13, 13, 0)}
	assert.ErrorIs(t, db.CreateBookingSlot(ctx, inWindow, slot(12, 8, 0)), ErrRateLimited)

	free := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(25, 10, 0), EndTime: slot(25, 11, 0)}
	assert.NoError(t, db.CreateBookingSlot(ctx, free, slot(24, 8, 0)))
}

func TestCreateBookingSlot_RateLimitPerUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	aliceID, machineID := seedUserAndMachine(t, db, "S1")
	bob := &models.User{StudentID: "S2", Username: "Bob", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, db.CreateUser(ctx, bob))

	now := slot(1, 8, 0)

	first := &models.Booking{UserID: aliceID, MachineID: machineID, StartTime: slot(2, 10, 0), EndTime: slot(2, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, first, now))

	// Лимит Алисы не мешает Бобу
	second := &models.Booking{UserID: bob.ID, MachineID: machineID, StartTime: slot(3, 10, 0), EndTime: slot(3, 11, 0)}
	assert.NoError(t, db.CreateBookingSlot(ctx, second, now))
}

func TestCreateBookingSlot_CancelledDoesNotCountTowardLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")
	now := slot(1, 8, 0)

	first := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(2, 10, 0), EndTime: slot(2, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, first, now))
	require.NoError(t, db.CancelBooking(ctx, first.ID, userID))

	second := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(3, 10, 0), EndTime: slot(3, 11, 0)}
	assert.NoError(t, db.CreateBookingSlot(ctx, second, now))
}

func TestCreateBookingSlot_UpdatesMachineUsage(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")
	now := slot(1, 8, 0)

	b := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, b, now))

	machine, err := db.GetMachine(ctx, machineID)
	require.NoError(t, err)
	require.NotNil(t, machine.LastUsedBy)
	assert.Equal(t, userID, *machine.LastUsedBy)
	assert.NotNil(t, machine.LastUsedTime)
}

func TestCancelBooking(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")
	now := slot(1, 8, 0)

	b := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, b, now))

	// Чужое бронирование неотличимо от несуществующего
	assert.ErrorIs(t, db.CancelBooking(ctx, b.ID, userID+1), ErrBookingNotFound)
	assert.ErrorIs(t, db.CancelBooking(ctx, 999, userID), ErrBookingNotFound)

	require.NoError(t, db.CancelBooking(ctx, b.ID, userID))

	stored, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)

	// Повторная отмена идемпотентна
	assert.NoError(t, db.CancelBooking(ctx, b.ID, userID))
}

func TestCancelBooking_CompletedIsFinal(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")
	now := slot(1, 8, 0)

	b := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, b, now))

	_, err := db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, models.StatusCompleted, b.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, db.CancelBooking(ctx, b.ID, userID), ErrInvalidState)
}

func TestListUserBookings_Order(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")

	// Слоты в разных окнах лимита, now сдвигается между вставками
	early := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(2, 10, 0), EndTime: slot(2, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, early, slot(1, 8, 0)))
	late := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(20, 10, 0), EndTime: slot(20, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, late, slot(15, 8, 0)))

	bookings, err := db.ListUserBookings(ctx, userID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	// Новые сверху
	assert.Equal(t, late.ID, bookings[0].ID)
	assert.Equal(t, early.ID, bookings[1].ID)
	assert.NotEmpty(t, bookings[0].MachineName)
}

func TestListMachineBookings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	aliceID, machineID := seedUserAndMachine(t, db, "S1")
	bob := &models.User{StudentID: "S2", Username: "Bob", PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, db.CreateUser(ctx, bob))

	now := slot(1, 8, 0)

	first := &models.Booking{UserID: aliceID, MachineID: machineID, StartTime: slot(1, 12, 0), EndTime: slot(1, 13, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, first, now))
	second := &models.Booking{UserID: bob.ID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, second, now))

	// Отмененные уходят из расписания
	cancelled := &models.Booking{UserID: bob.ID, MachineID: machineID, StartTime: slot(15, 10, 0), EndTime: slot(15, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, cancelled, slot(14, 8, 0)))
	require.NoError(t, db.CancelBooking(ctx, cancelled.ID, bob.ID))

	bookings, err := db.ListMachineBookings(ctx, machineID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)

	// По возрастанию времени начала, с данными владельца
	assert.Equal(t, second.ID, bookings[0].ID)
	assert.Equal(t, "Bob", bookings[0].Username)
	assert.Equal(t, "S2", bookings[0].StudentID)
	assert.Equal(t, first.ID, bookings[1].ID)

	_, err = db.ListMachineBookings(ctx, 999)
	assert.ErrorIs(t, err, ErrMachineNotFound)
}

func TestListAllBookings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	userID, machineID := seedUserAndMachine(t, db, "S1")

	b := &models.Booking{UserID: userID, MachineID: machineID, StartTime: slot(1, 10, 0), EndTime: slot(1, 11, 0)}
	require.NoError(t, db.CreateBookingSlot(ctx, b, slot(1, 8, 0)))

	bookings, err := db.ListAllBookings(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Test User", bookings[0].Username)
}

func TestGetBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetBooking(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
