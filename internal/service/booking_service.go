package service

import (
	"context"
	"fmt"
	"time"

	"stirka/internal/domain"
	"stirka/internal/events"
	"stirka/internal/models"

	"github.com/rs/zerolog"
)

// BookingService оркестрирует жизненный цикл бронирования: допуск и
// запись выполняет хранилище одной транзакцией, подтверждение уходит
// подписчикам шины событий уже после коммита.
type BookingService struct {
	repo     domain.Repository
	eventBus *events.EventBus
	logger   *zerolog.Logger

	// now подменяется в тестах: окно лимита частоты скользящее
	// и привязано к моменту оценки.
	now func() time.Time
}

func NewBookingService(repo domain.Repository, eventBus *events.EventBus, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock заменяет источник времени. Используется тестами.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// CreateBooking проводит кандидата через допуск и создает бронирование
// со статусом confirmed. Возвращает созданную запись.
func (s *BookingService) CreateBooking(ctx context.Context, userID, machineID int64, start, end time.Time) (*models.Booking, error) {
	if userID <= 0 || machineID <= 0 {
		return nil, fmt.Errorf("%w: user_id and machine_id are required", ErrValidation)
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start_time and end_time are required", ErrValidation)
	}

	booking := &models.Booking{
		UserID:    userID,
		MachineID: machineID,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
	}

	if err := s.repo.CreateBookingSlot(ctx, booking, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("user_id", userID).
		Int64("machine_id", machineID).
		Time("start", booking.StartTime).
		Msg("booking created")

	s.publishCreated(ctx, booking)
	return booking, nil
}

// publishCreated собирает снимок для уведомления. Любая ошибка здесь
// не влияет на уже закоммиченное бронирование.
func (s *BookingService) publishCreated(ctx context.Context, booking *models.Booking) {
	user, err := s.repo.GetUserByID(ctx, booking.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to load user for notification")
		return
	}

	machine, err := s.repo.GetMachine(ctx, booking.MachineID)
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to load machine for notification")
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		MachineID:   machine.ID,
		MachineName: machine.Name,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		Status:      booking.Status,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("failed to publish booking event")
	}
}

// CancelBooking отменяет бронирование от имени владельца.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID int64) error {
	if err := s.repo.CancelBooking(ctx, bookingID, userID); err != nil {
		return err
	}

	s.logger.Info().Int64("booking_id", bookingID).Int64("user_id", userID).Msg("booking cancelled")

	if err := s.eventBus.PublishJSON(events.EventBookingCancelled, events.BookingEventPayload{
		BookingID: bookingID,
		UserID:    userID,
		Status:    models.StatusCancelled,
	}); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("failed to publish cancel event")
	}
	return nil
}

// ListUserBookings список бронирований пользователя, новые сверху.
func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return s.repo.ListUserBookings(ctx, userID)
}

// ListMachineBookings активное расписание машины.
func (s *BookingService) ListMachineBookings(ctx context.Context, machineID int64) ([]*models.Booking, error) {
	return s.repo.ListMachineBookings(ctx, machineID)
}

// ListAllBookings полный список для администратора.
func (s *BookingService) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.repo.ListAllBookings(ctx)
}
