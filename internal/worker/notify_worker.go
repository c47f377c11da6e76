package worker

import (
	"context"
	"encoding/json"
	"time"

	"stirka/internal/domain"
	"stirka/internal/events"
	"stirka/internal/models"

	"github.com/rs/zerolog"
)

// NotifyWorker асинхронно доставляет письма-подтверждения.
// Очередь наполняется событиями booking_created после коммита транзакции:
// доставка никогда не держит транзакцию бронирования открытой и не
// откатывает ее при отказе.
type NotifyWorker struct {
	notifier    domain.Notifier
	queue       chan events.BookingEventPayload
	retryPolicy RetryPolicy
	logger      *zerolog.Logger
}

func NewNotifyWorker(notifier domain.Notifier, retry RetryPolicy, logger *zerolog.Logger) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &NotifyWorker{
		notifier:    notifier,
		queue:       make(chan events.BookingEventPayload, models.WorkerQueueSize),
		retryPolicy: retry,
		logger:      logger,
	}
}

// SubscribeTo подписывает воркера на события созданных бронирований.
func (w *NotifyWorker) SubscribeTo(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			w.logger.Error().Err(err).Msg("failed to decode booking event")
			return err
		}
		w.Enqueue(payload)
		return nil
	})
}

// Enqueue ставит уведомление в очередь без блокировки. Переполнение
// очереди роняет уведомление, не бронирование.
func (w *NotifyWorker) Enqueue(payload events.BookingEventPayload) {
	select {
	case w.queue <- payload:
	default:
		w.logger.Warn().Int64("booking_id", payload.BookingID).Msg("notification queue is full, dropping")
	}
}

// Start запускает цикл доставки до отмены контекста.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("notification worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("notification worker stopped")
			return
		case payload := <-w.queue:
			w.deliver(ctx, payload)
		}
	}
}

func (w *NotifyWorker) deliver(ctx context.Context, p events.BookingEventPayload) {
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		err := w.notifier.NotifyBookingConfirmed(ctx, p.Email, p.Username, p.MachineName, p.StartTime, p.EndTime, p.BookingID)
		if err == nil {
			return
		}

		w.logger.Warn().
			Err(err).
			Int64("booking_id", p.BookingID).
			Int("attempt", attempt).
			Msg("notification delivery failed")

		if attempt == w.retryPolicy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}

	// Уведомление не входит в границу консистентности: исчерпали попытки — логируем и забываем.
	w.logger.Error().Int64("booking_id", p.BookingID).Msg("notification permanently failed")
}
