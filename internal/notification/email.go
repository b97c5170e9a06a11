package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"hydrowangi-backend/config"
	"hydrowangi-backend/internal/alert"
)

// Subject is the title used by every alert channel.
const Subject = "⚠️ ALERT PPM HIDROPONIK"

// Body renders the human-readable alert text.
func Body(a alert.Alert) string {
	msg := fmt.Sprintf("PPM %g berada di luar batas (%s)", a.PPM, a.Band)
	if a.PlantName != "" {
		msg += fmt.Sprintf(" untuk tanaman %s", a.PlantName)
	}
	return msg
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends alerts over SMTP.
type EmailNotifier struct {
	cfg      config.EmailConfig
	sendMail sendMailFunc
}

// NewEmailNotifier creates an SMTP notifier using smtp.SendMail.
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, sendMail: smtp.SendMail}
}

// Notify sends one alert email to every configured recipient.
func (e *EmailNotifier) Notify(ctx context.Context, a alert.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Password, e.cfg.Host)
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(Body(a))
	msg.WriteString("\r\n")

	if err := e.sendMail(addr, auth, e.cfg.From, e.cfg.To, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}
