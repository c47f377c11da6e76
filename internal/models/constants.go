package models

// Статусы бронирований. Переходы только вперед:
// confirmed -> cancelled, confirmed -> completed.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Статусы стиральных машин.
const (
	MachineAvailable = "available"
	MachineInUse     = "in_use"
	MachineBroken    = "broken"
)

const (
	// RateLimitWindowDays размер скользящего окна для лимита бронирований
	RateLimitWindowDays = 10

	// RateLimitMaxActive максимум активных бронирований в окне на пользователя
	RateLimitMaxActive = 1

	// DefaultSessionTTL время жизни сессии в Redis
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа в секундах

	// WorkerQueueSize размер очереди воркера уведомлений
	WorkerQueueSize = 1000

	// FederatedCredential маркер учетной записи, созданной через Google Sign-In.
	// Никогда не совпадает с bcrypt-хэшем, парольный вход для таких записей невозможен.
	FederatedCredential = "google_auth"
)

// ValidMachineStatus reports whether s is one of the closed machine status set.
func ValidMachineStatus(s string) bool {
	switch s {
	case MachineAvailable, MachineInUse, MachineBroken:
		return true
	}
	return false
}

// ActiveBooking reports whether a booking status counts toward
// overlap and rate-limit checks.
func ActiveBooking(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}
