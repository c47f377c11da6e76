package domain

import (
	"context"
	"time"

	"stirka/internal/models"
)

// Repository контракт хранилища, который требует ядро бронирования.
type Repository interface {
	CreateBookingSlot(ctx context.Context, booking *models.Booking, now time.Time) error
	CancelBooking(ctx context.Context, bookingID, userID int64) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	ListMachineBookings(ctx context.Context, machineID int64) ([]*models.Booking, error)
	ListAllBookings(ctx context.Context) ([]*models.Booking, error)

	CreateMachine(ctx context.Context, name string) (*models.Machine, error)
	GetMachine(ctx context.Context, id int64) (*models.Machine, error)
	ListMachines(ctx context.Context) ([]*models.Machine, error)
	SetMachineStatus(ctx context.Context, id int64, status string) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByStudentID(ctx context.Context, studentID string, role models.Role) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUserEmail(ctx context.Context, id int64, email string) error
}

// Notifier доставляет подтверждение бронирования. Best-effort: отказ
// логируется и никогда не влияет на само бронирование.
type Notifier interface {
	NotifyBookingConfirmed(ctx context.Context, email, username, machineName string, start, end time.Time, bookingID int64) error
}

// TokenVerifier проверяет внешнее удостоверение личности (Google ID token).
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*VerifiedIdentity, error)
}

// VerifiedIdentity результат успешной проверки внешнего токена.
type VerifiedIdentity struct {
	Email string
	Name  string
}

// SessionRepository хранит выданные сессии с TTL.
type SessionRepository interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
}
