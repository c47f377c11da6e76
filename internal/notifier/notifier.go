package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"stirka/internal/config"

	"github.com/rs/zerolog"
)

// EmailNotifier отправляет письмо-подтверждение через SMTP (STARTTLS).
type EmailNotifier struct {
	cfg    config.SMTPConfig
	logger *zerolog.Logger
}

func NewEmailNotifier(cfg config.SMTPConfig, logger *zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

func (n *EmailNotifier) NotifyBookingConfirmed(ctx context.Context, email, username, machineName string, start, end time.Time, bookingID int64) error {
	if email == "" {
		// Email не обязателен; без адреса подтверждать некому.
		return nil
	}

	subject := "Washing Machine Booking Confirmation"
	body := confirmationBody(username, machineName, start, end, bookingID)

	msg := buildMessage(n.cfg.From, email, subject, body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)

	if err := smtp.SendMail(addr, auth, n.cfg.User, []string{email}, msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	n.logger.Info().Int64("booking_id", bookingID).Str("to", email).Msg("confirmation email sent")
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func confirmationBody(username, machineName string, start, end time.Time, bookingID int64) string {
	const layout = "2006-01-02 15:04"
	return fmt.Sprintf(`<html>
<body>
    <h2>Booking Confirmation</h2>
    <p>Dear %s,</p>
    <p>Your washing machine booking has been confirmed.</p>
    <div>
        <h3>Booking Details:</h3>
        <p><strong>Booking ID:</strong> #%d</p>
        <p><strong>Machine:</strong> %s</p>
        <p><strong>Start Time:</strong> %s</p>
        <p><strong>End Time:</strong> %s</p>
    </div>
    <p>If you need to cancel, please do so at least 30 minutes before your slot.</p>
</body>
</html>`, username, bookingID, machineName, start.Format(layout), end.Format(layout))
}

// ConsoleNotifier пишет подтверждения в лог. Используется, когда SMTP выключен.
type ConsoleNotifier struct {
	logger *zerolog.Logger
}

func NewConsole(logger *zerolog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) NotifyBookingConfirmed(ctx context.Context, email, username, machineName string, start, end time.Time, bookingID int64) error {
	n.logger.Info().
		Int64("booking_id", bookingID).
		Str("username", username).
		Str("machine", machineName).
		Time("start", start).
		Time("end", end).
		Msg("booking confirmed")
	return nil
}
